package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vitos/crypto_stop_replay/internal/domain"
	"github.com/vitos/crypto_stop_replay/internal/usecase"
)

func TestNormalizeKlines_KeepsProviderOrder(t *testing.T) {
	raw := []domain.RawKline{
		{"1704067320000", "102", "103", "101", "102.5", "3", "306"},
		{"1704067260000", "101", "102", "100", "102", "2", "203"},
		{"1704067200000", "100", "101", "99", "101", "1", "100"},
	}

	candles := usecase.NormalizeKlines(raw)

	assert.Len(t, candles, 3)
	assert.Equal(t, int64(1704067320000), candles[0].StartTime)
	assert.Equal(t, int64(1704067200000), candles[2].StartTime)
	assert.Equal(t, "2024-01-01T00:02:00.000Z", candles[0].StartTimeISO)
	assert.Equal(t, 99.0, candles[2].Low)
	assert.Equal(t, 306.0, candles[0].Turnover)
}

func TestNormalizeKlines_Empty(t *testing.T) {
	assert.Empty(t, usecase.NormalizeKlines(nil))
	assert.NotNil(t, usecase.NormalizeKlines(nil))
	assert.Empty(t, usecase.NormalizeKlines([]domain.RawKline{}))
}

func TestNormalizeKlines_MalformedBarIsKept(t *testing.T) {
	raw := []domain.RawKline{
		{"1704067260000", "101", "102", "100", "102", "2", "203"},
		{"1704067200000", "100", "oops", "99", "101", "1", "100"},
		{"1704067140000"},
	}

	candles := usecase.NormalizeKlines(raw)

	assert.Len(t, candles, 3)
	assert.False(t, candles[0].Malformed)
	assert.True(t, candles[1].Malformed)
	assert.True(t, candles[2].Malformed)
	assert.Equal(t, 2, usecase.CountMalformed(candles))
}
