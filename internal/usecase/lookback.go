package usecase

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vitos/crypto_stop_replay/internal/domain"
)

// MaxPageSize is the largest kline page Bybit returns in one call.
const MaxPageSize = 200

// Lookback is the number of bars covering entry..now.
// BarsRequested is BarsNeeded capped at MaxPageSize.
type Lookback struct {
	ElapsedMs     int64 `json:"elapsed_ms"`
	BarsNeeded    int64 `json:"bars_needed"`
	BarsRequested int   `json:"bars_requested"`
}

// Truncated reports whether the window is wider than one page.
func (l Lookback) Truncated() bool {
	return l.BarsNeeded > int64(l.BarsRequested)
}

// LookbackBars sizes the kline request for an entry at entryMs seen at nowMs.
func LookbackBars(entryMs int64, intervalMinutes int, nowMs int64) (Lookback, error) {
	if intervalMinutes <= 0 {
		return Lookback{}, fmt.Errorf("%w: %d minutes", domain.ErrInvalidInterval, intervalMinutes)
	}
	if entryMs >= nowMs {
		return Lookback{}, fmt.Errorf("%w: entry=%s now=%s", domain.ErrFutureEntryDate,
			domain.FormatMillis(entryMs), domain.FormatMillis(nowMs))
	}

	elapsed := nowMs - entryMs
	width := int64(intervalMinutes) * 60_000
	needed := (elapsed + width - 1) / width

	requested := MaxPageSize
	if needed < MaxPageSize {
		requested = int(needed)
	}

	return Lookback{
		ElapsedMs:     elapsed,
		BarsNeeded:    needed,
		BarsRequested: requested,
	}, nil
}

// IntervalMinutes maps a Bybit interval ("1".."720", "D", "W", "M") to minutes.
// A month counts as 30 days.
func IntervalMinutes(interval string) (int, error) {
	switch strings.ToUpper(strings.TrimSpace(interval)) {
	case "D":
		return 1440, nil
	case "W":
		return 7 * 1440, nil
	case "M":
		return 30 * 1440, nil
	}
	m, err := strconv.Atoi(strings.TrimSpace(interval))
	if err != nil || m <= 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidInterval, interval)
	}
	return m, nil
}
