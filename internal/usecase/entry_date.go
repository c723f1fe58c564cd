package usecase

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vitos/crypto_stop_replay/internal/domain"
)

// minEntryDate predates every Bybit market; earlier entries are rejected so
// the lookback arithmetic stays well inside int64.
var minEntryDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

var entryDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseEntryDate accepts epoch milliseconds or an ISO-8601 date. Dates
// without a zone are read as UTC. Dates before 2000-01-01 are invalid.
func ParseEntryDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", domain.ErrInvalidEntryDate)
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return checkEntryFloor(time.UnixMilli(ms).UTC(), s)
	}
	for _, layout := range entryDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return checkEntryFloor(t.UTC(), s)
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidEntryDate, s)
}

func checkEntryFloor(t time.Time, s string) (time.Time, error) {
	if t.Before(minEntryDate) {
		return time.Time{}, fmt.Errorf("%w: %q is before %s", domain.ErrInvalidEntryDate, s, minEntryDate.Format(time.DateOnly))
	}
	return t, nil
}
