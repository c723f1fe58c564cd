package usecase

import "github.com/vitos/crypto_stop_replay/internal/domain"

// NormalizeKlines converts raw bars one-to-one, keeping the provider's order.
// Unreadable bars come back flagged Malformed rather than dropped.
func NormalizeKlines(raw []domain.RawKline) []domain.Candle {
	candles := make([]domain.Candle, 0, len(raw))
	for _, r := range raw {
		c, _ := domain.ParseKline(r)
		candles = append(candles, c)
	}
	return candles
}

// CountMalformed returns how many candles were flagged by the normalizer.
func CountMalformed(candles []domain.Candle) int {
	n := 0
	for _, c := range candles {
		if c.Malformed {
			n++
		}
	}
	return n
}
