package usecase

import (
	"fmt"
	"math"
	"sort"

	"github.com/vitos/crypto_stop_replay/internal/domain"
)

// DefaultStopPercents are used when a request names no valid stop.
var DefaultStopPercents = []float64{10, 15, 20}

// SimulateStops replays candles in chronological order and records, for
// every stop percent, the first candle whose range reaches the stop.
// The input slice is not modified.
func SimulateStops(entryPrice float64, side domain.Side, candles []domain.Candle, stopPercents []float64) (*domain.SimulationResult, error) {
	run, err := newStopRun(entryPrice, side, stopPercents)
	if err != nil {
		return nil, err
	}
	for _, c := range SortChronological(candles) {
		run.step(c)
	}
	return run.snapshot(), nil
}

// SortChronological returns a copy ordered by start time, oldest first.
// Bybit pages newest first.
func SortChronological(candles []domain.Candle) []domain.Candle {
	sorted := make([]domain.Candle, len(candles))
	copy(sorted, candles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime < sorted[j].StartTime
	})
	return sorted
}

// FilterStopPercents drops non-positive and non-finite values, falling back
// to DefaultStopPercents when nothing is left.
func FilterStopPercents(percents []float64) []float64 {
	if valid := validStopPercents(percents); len(valid) > 0 {
		return valid
	}
	return append([]float64(nil), DefaultStopPercents...)
}

func validStopPercents(percents []float64) []float64 {
	var out []float64
	for _, p := range percents {
		if p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p) {
			out = append(out, p)
		}
	}
	return out
}

func validateEntryPrice(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return fmt.Errorf("%w: %v", domain.ErrInvalidEntryPrice, p)
	}
	return nil
}

// stopRun is the incremental state shared by SimulateStops and StopTracker.
type stopRun struct {
	side    domain.Side
	entry   float64
	minLow  float64
	maxHigh float64
	keys    []domain.StopKey
	stops   map[domain.StopKey]*domain.StopThreshold
	seen    int
	skipped int
}

func newStopRun(entryPrice float64, side domain.Side, stopPercents []float64) (*stopRun, error) {
	if err := validateEntryPrice(entryPrice); err != nil {
		return nil, err
	}
	side, err := domain.ParseSide(string(side))
	if err != nil {
		return nil, err
	}

	r := &stopRun{
		side:    side,
		entry:   entryPrice,
		minLow:  math.Inf(1),
		maxHigh: math.Inf(-1),
		stops:   make(map[domain.StopKey]*domain.StopThreshold),
	}
	for _, p := range FilterStopPercents(stopPercents) {
		key := domain.NewStopKey(p)
		if _, dup := r.stops[key]; !dup {
			r.keys = append(r.keys, key)
		}
		r.stops[key] = domain.NewStopThreshold(entryPrice, p, side)
	}
	return r, nil
}

// step applies one candle and returns the keys it hit for the first time.
func (r *stopRun) step(c domain.Candle) []domain.StopKey {
	if c.Malformed {
		r.skipped++
		return nil
	}
	r.seen++
	return r.observe(c)
}

// observe updates extremes and stops without counting the candle.
func (r *stopRun) observe(c domain.Candle) []domain.StopKey {
	if c.Low < r.minLow {
		r.minLow = c.Low
	}
	if c.High > r.maxHigh {
		r.maxHigh = c.High
	}

	var hits []domain.StopKey
	for _, key := range r.keys {
		s := r.stops[key]
		if s.Hit {
			continue
		}
		if s.Touched(c, r.side) && s.MarkHit(c) {
			hits = append(hits, key)
		}
	}
	return hits
}

func (r *stopRun) snapshot() *domain.SimulationResult {
	res := &domain.SimulationResult{
		Direction:        r.side,
		EntryPrice:       r.entry,
		Stops:            r.stops,
		CandlesProcessed: r.seen,
		MalformedSkipped: r.skipped,
	}
	if !math.IsInf(r.minLow, 1) {
		v := r.minLow
		res.MinLowSinceEntry = &v
	}
	if !math.IsInf(r.maxHigh, -1) {
		v := r.maxHigh
		res.MaxHighSinceEntry = &v
	}
	return res.Clone()
}
