package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ISOLayout renders epoch milliseconds the way Bybit and browsers print them.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// RawKline is one Bybit bar: [startTime, open, high, low, close, volume, turnover].
type RawKline []string

// Candle is a canonical OHLCV bar. Malformed marks a bar whose start time,
// low or high could not be read; such bars never move extremes or trigger
// stops. Open, close, volume and turnover may be NaN on a usable bar.
type Candle struct {
	StartTime    int64   `json:"start_time"`
	StartTimeISO string  `json:"start_time_iso"`
	Open         float64 `json:"open"`
	High         float64 `json:"high"`
	Low          float64 `json:"low"`
	Close        float64 `json:"close"`
	Volume       float64 `json:"volume"`
	Turnover     float64 `json:"turnover"`
	Malformed    bool    `json:"malformed,omitempty"`
}

func NewCandle(startMs int64, open, high, low, closePrice, volume, turnover float64) Candle {
	c := Candle{
		StartTime:    startMs,
		StartTimeISO: FormatMillis(startMs),
		Open:         open,
		High:         high,
		Low:          low,
		Close:        closePrice,
		Volume:       volume,
		Turnover:     turnover,
	}
	c.Malformed = !isFinite(high) || !isFinite(low)
	return c
}

func FormatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(ISOLayout)
}

// ParseKline converts a raw bar. Fields that do not parse become NaN and the
// candle is flagged Malformed; the returned error wraps ErrMalformedBar.
func ParseKline(raw RawKline) (Candle, error) {
	field := func(i int) string {
		if i < len(raw) {
			return raw[i]
		}
		return ""
	}

	var bad []int
	num := func(i int) float64 {
		v, err := strconv.ParseFloat(field(i), 64)
		if err != nil || !isFinite(v) {
			bad = append(bad, i)
			return math.NaN()
		}
		return v
	}

	ts, tsErr := strconv.ParseInt(field(0), 10, 64)
	c := NewCandle(ts, num(1), num(2), num(3), num(4), num(5), num(6))
	if tsErr != nil {
		bad = append([]int{0}, bad...)
		c.StartTime = 0
		c.StartTimeISO = ""
		c.Malformed = true
	}

	if len(bad) > 0 {
		return c, fmt.Errorf("%w: fields %v of %q", ErrMalformedBar, bad, []string(raw))
	}
	return c, nil
}

type candleJSON struct {
	StartTime    int64    `json:"start_time"`
	StartTimeISO string   `json:"start_time_iso"`
	Open         *float64 `json:"open"`
	High         *float64 `json:"high"`
	Low          *float64 `json:"low"`
	Close        *float64 `json:"close"`
	Volume       *float64 `json:"volume"`
	Turnover     *float64 `json:"turnover"`
	Malformed    bool     `json:"malformed,omitempty"`
}

// MarshalJSON writes non-finite values as null; encoding/json rejects NaN.
func (c Candle) MarshalJSON() ([]byte, error) {
	return json.Marshal(candleJSON{
		StartTime:    c.StartTime,
		StartTimeISO: c.StartTimeISO,
		Open:         finiteOrNil(c.Open),
		High:         finiteOrNil(c.High),
		Low:          finiteOrNil(c.Low),
		Close:        finiteOrNil(c.Close),
		Volume:       finiteOrNil(c.Volume),
		Turnover:     finiteOrNil(c.Turnover),
		Malformed:    c.Malformed,
	})
}

// UnmarshalJSON treats missing or null prices as unreadable and derives the
// ISO time from start_time.
func (c *Candle) UnmarshalJSON(b []byte) error {
	var v candleJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*c = NewCandle(v.StartTime, nilToNaN(v.Open), nilToNaN(v.High), nilToNaN(v.Low),
		nilToNaN(v.Close), nilToNaN(v.Volume), nilToNaN(v.Turnover))
	c.Malformed = c.Malformed || v.Malformed
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func finiteOrNil(f float64) *float64 {
	if !isFinite(f) {
		return nil
	}
	return &f
}

func nilToNaN(f *float64) float64 {
	if f == nil {
		return math.NaN()
	}
	return *f
}
