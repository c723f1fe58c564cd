package usecase

import (
	"sync"

	"github.com/vitos/crypto_stop_replay/internal/domain"
)

// StopTracker continues a stop replay with candles arriving one by one,
// e.g. from a live kline stream.
type StopTracker struct {
	mu          sync.Mutex
	run         *stopRun
	started     bool
	lastStart   int64
	skippedAny  bool
	lastSkipped int64
}

// NewStopTracker replays seed (any order) and returns a tracker positioned
// after its newest candle.
func NewStopTracker(entryPrice float64, side domain.Side, stopPercents []float64, seed []domain.Candle) (*StopTracker, error) {
	run, err := newStopRun(entryPrice, side, stopPercents)
	if err != nil {
		return nil, err
	}
	t := &StopTracker{run: run}
	for _, c := range SortChronological(seed) {
		if c.Malformed {
			run.step(c)
			continue
		}
		t.apply(c)
	}
	return t, nil
}

// Apply feeds one candle and returns the stops it hit for the first time.
// Candles older than the last applied one are ignored; a candle with the
// same start time is re-applied, which covers the final update of an
// in-progress bar. A malformed bar is counted as skipped once, however
// many updates of it arrive.
func (t *StopTracker) Apply(c domain.Candle) []domain.StopKey {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.apply(c)
}

func (t *StopTracker) apply(c domain.Candle) []domain.StopKey {
	if c.Malformed {
		if t.started && c.StartTime <= t.lastStart {
			return nil
		}
		if t.skippedAny && c.StartTime == t.lastSkipped {
			return nil
		}
		t.skippedAny = true
		t.lastSkipped = c.StartTime
		t.run.step(c)
		return nil
	}
	if t.started {
		switch {
		case c.StartTime < t.lastStart:
			return nil
		case c.StartTime == t.lastStart:
			return t.run.observe(c)
		}
	}
	t.started = true
	t.lastStart = c.StartTime
	return t.run.step(c)
}

// Snapshot returns a copy of the current result.
func (t *StopTracker) Snapshot() *domain.SimulationResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.run.snapshot()
}

// Pending reports how many stops have not been hit yet.
func (t *StopTracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, s := range t.run.stops {
		if !s.Hit {
			n++
		}
	}
	return n
}
