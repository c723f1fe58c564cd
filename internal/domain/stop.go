package domain

import (
	"github.com/shopspring/decimal"
)

var (
	decOne     = decimal.NewFromInt(1)
	decHundred = decimal.NewFromInt(100)
)

// StopKey is the canonical decimal form of a stop percent, so 10 and 10.0
// name the same threshold.
type StopKey string

func NewStopKey(percent float64) StopKey {
	return StopKey(decimal.NewFromFloat(percent).String())
}

// StopThreshold is one candidate stop-loss level and its first touch.
type StopThreshold struct {
	Percent         float64 `json:"percent"`
	TriggerPrice    float64 `json:"trigger_price"`
	Hit             bool    `json:"hit"`
	FirstHitTime    *int64  `json:"first_hit_time"`
	FirstHitTimeISO *string `json:"first_hit_time_iso"`
}

// NewStopThreshold places the trigger below entry for LONG and above it for SHORT.
func NewStopThreshold(entryPrice, percent float64, side Side) *StopThreshold {
	factor := decimal.NewFromFloat(percent).Div(decHundred)
	if side == SideShort {
		factor = decOne.Add(factor)
	} else {
		factor = decOne.Sub(factor)
	}
	price, _ := decimal.NewFromFloat(entryPrice).Mul(factor).Float64()
	return &StopThreshold{
		Percent:      percent,
		TriggerPrice: price,
	}
}

// Touched reports whether the candle reaches the trigger. Equality counts.
func (s *StopThreshold) Touched(c Candle, side Side) bool {
	if side == SideShort {
		return c.High >= s.TriggerPrice
	}
	return c.Low <= s.TriggerPrice
}

// MarkHit freezes the threshold at the candle's start time. Later calls are no-ops.
func (s *StopThreshold) MarkHit(c Candle) bool {
	if s.Hit {
		return false
	}
	t, iso := c.StartTime, c.StartTimeISO
	s.Hit = true
	s.FirstHitTime = &t
	s.FirstHitTimeISO = &iso
	return true
}

// SimulationResult holds the outcome of a stop replay over a candle sequence.
type SimulationResult struct {
	Direction         Side                       `json:"direction"`
	EntryPrice        float64                    `json:"entry_price"`
	MinLowSinceEntry  *float64                   `json:"min_low_since_entry"`
	MaxHighSinceEntry *float64                   `json:"max_high_since_entry"`
	Stops             map[StopKey]*StopThreshold `json:"stops"`
	CandlesProcessed  int                        `json:"candles_processed"`
	MalformedSkipped  int                        `json:"malformed_skipped"`
}

// Clone returns a deep copy.
func (r *SimulationResult) Clone() *SimulationResult {
	out := *r
	if r.MinLowSinceEntry != nil {
		v := *r.MinLowSinceEntry
		out.MinLowSinceEntry = &v
	}
	if r.MaxHighSinceEntry != nil {
		v := *r.MaxHighSinceEntry
		out.MaxHighSinceEntry = &v
	}
	out.Stops = make(map[StopKey]*StopThreshold, len(r.Stops))
	for k, s := range r.Stops {
		cp := *s
		if s.FirstHitTime != nil {
			t := *s.FirstHitTime
			cp.FirstHitTime = &t
		}
		if s.FirstHitTimeISO != nil {
			iso := *s.FirstHitTimeISO
			cp.FirstHitTimeISO = &iso
		}
		out.Stops[k] = &cp
	}
	return &out
}
