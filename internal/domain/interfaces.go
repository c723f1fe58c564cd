package domain

import (
	"context"
	"encoding/json"
)

// MarketData defines the public market-data calls the simulator needs.
type MarketData interface {
	GetKlines(ctx context.Context, q KlineQuery) (*KlineResponse, error)
	GetTicker(ctx context.Context, symbol, category string) (*Ticker, error)
}

// KlineQuery mirrors the Bybit v5 kline parameters. Zero Start/End/Limit are omitted.
type KlineQuery struct {
	Symbol   string
	Category string
	Interval string
	Start    int64
	End      int64
	Limit    int
}

type KlineResponse struct {
	Raw  json.RawMessage // full upstream payload
	List []RawKline
}
