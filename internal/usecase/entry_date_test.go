package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/crypto_stop_replay/internal/domain"
	"github.com/vitos/crypto_stop_replay/internal/usecase"
)

func TestParseEntryDate(t *testing.T) {
	tests := []struct {
		in     string
		wantMs int64
	}{
		{"1704067200000", 1704067200000},
		{"2024-01-01T00:00:00Z", 1704067200000},
		{"2024-01-01T00:00:00.500Z", 1704067200500},
		{"2024-01-01T02:00:00+02:00", 1704067200000},
		{"2024-01-01T00:00:00", 1704067200000},
		{"2024-01-01 00:01:00", 1704067260000},
		{"2024-01-01", 1704067200000},
		{"946684800000", 946684800000},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := usecase.ParseEntryDate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMs, got.UnixMilli())
		})
	}
}

func TestParseEntryDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "  ", "yesterday", "2024-13-45", "0", "-1", "-9223372036854775808", "1999-12-31T23:59:59Z"} {
		_, err := usecase.ParseEntryDate(in)
		assert.ErrorIs(t, err, domain.ErrInvalidEntryDate, in)
	}
}
