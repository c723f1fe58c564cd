package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vitos/crypto_stop_replay/internal/domain"
	"go.uber.org/zap"
)

const (
	DefaultCategory = "linear"
	DefaultInterval = "1"
)

var DefaultTickerCategories = []string{"spot", "linear", "inverse"}

type StopServiceConfig struct {
	DefaultCategory  string
	DefaultStops     []float64
	TickerCategories []string
}

// StopService fetches candles from the market-data provider and replays
// stops over them. It keeps no state between calls.
type StopService struct {
	market  domain.MarketData
	cfg     StopServiceConfig
	logger  *zap.Logger
	timeNow func() time.Time // For testing
}

func NewStopService(market domain.MarketData, cfg StopServiceConfig, logger *zap.Logger) *StopService {
	if cfg.DefaultCategory == "" {
		cfg.DefaultCategory = DefaultCategory
	}
	if len(cfg.DefaultStops) == 0 {
		cfg.DefaultStops = DefaultStopPercents
	}
	if len(cfg.TickerCategories) == 0 {
		cfg.TickerCategories = DefaultTickerCategories
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StopService{
		market:  market,
		cfg:     cfg,
		logger:  logger,
		timeNow: time.Now,
	}
}

type CandleQuery struct {
	Symbol   string
	Category string
	Interval string
	Start    int64
	End      int64
	Limit    int
}

type CandlesResult struct {
	Raw     json.RawMessage `json:"raw"`
	Candles []domain.Candle `json:"candles"`
}

// GetCandles fetches one kline page and normalizes it. Candles keep the
// provider's order (newest first for Bybit).
func (s *StopService) GetCandles(ctx context.Context, q CandleQuery) (*CandlesResult, error) {
	if strings.TrimSpace(q.Symbol) == "" {
		return nil, domain.ErrMissingSymbol
	}
	if q.Category == "" {
		q.Category = s.cfg.DefaultCategory
	}
	if q.Interval == "" {
		q.Interval = DefaultInterval
	}
	if _, err := IntervalMinutes(q.Interval); err != nil {
		return nil, err
	}
	if q.Limit <= 0 || q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}

	resp, err := s.market.GetKlines(ctx, domain.KlineQuery{
		Symbol:   q.Symbol,
		Category: q.Category,
		Interval: q.Interval,
		Start:    q.Start,
		End:      q.End,
		Limit:    q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching klines for %s: %w", q.Symbol, err)
	}

	candles := NormalizeKlines(resp.List)
	if n := CountMalformed(candles); n > 0 {
		s.logger.Warn("Malformed klines from upstream",
			zap.String("symbol", q.Symbol),
			zap.Int("malformed", n),
			zap.Int("total", len(candles)))
	}

	return &CandlesResult{Raw: resp.Raw, Candles: candles}, nil
}

// SimulateStops replays stops over caller-supplied candles. An empty
// direction means LONG.
func (s *StopService) SimulateStops(entryPrice float64, direction string, candles []domain.Candle, stopPercents []float64) (*domain.SimulationResult, error) {
	side, err := parseDirection(direction)
	if err != nil {
		return nil, err
	}
	return SimulateStops(entryPrice, side, candles, s.stopsOrDefault(stopPercents))
}

type SinceEntryRequest struct {
	Symbol         string
	Category       string
	Interval       string
	EntryPrice     float64
	EntryDate      string
	Direction      string
	StopPercents   []float64
	IncludeCandles bool
}

type SinceEntryMeta struct {
	Symbol          string      `json:"symbol"`
	Category        string      `json:"category"`
	Interval        string      `json:"interval"`
	EntryPrice      float64     `json:"entry_price"`
	Direction       domain.Side `json:"direction"`
	EntryTime       int64       `json:"entry_time"`
	EntryTimeISO    string      `json:"entry_time_iso"`
	StopPercents    []float64   `json:"stop_percents"`
	ElapsedMs       int64       `json:"elapsed_ms"`
	BarsNeeded      int64       `json:"bars_needed"`
	BarsRequested   int         `json:"bars_requested"`
	Truncated       bool        `json:"truncated"`
	CandlesReceived int         `json:"candles_received"`
}

type SinceEntryResult struct {
	Meta    SinceEntryMeta           `json:"meta"`
	Result  *domain.SimulationResult `json:"result"`
	Candles []domain.Candle          `json:"candles,omitempty"`
}

// SimulateStopsSinceEntry sizes the lookback from the entry date, fetches
// the candles starting at entry, and replays the stops. All request
// validation happens before the provider is called.
func (s *StopService) SimulateStopsSinceEntry(ctx context.Context, req SinceEntryRequest) (*SinceEntryResult, error) {
	if strings.TrimSpace(req.Symbol) == "" {
		return nil, domain.ErrMissingSymbol
	}
	if err := validateEntryPrice(req.EntryPrice); err != nil {
		return nil, err
	}
	side, err := parseDirection(req.Direction)
	if err != nil {
		return nil, err
	}
	entry, err := ParseEntryDate(req.EntryDate)
	if err != nil {
		return nil, err
	}
	if req.Category == "" {
		req.Category = s.cfg.DefaultCategory
	}
	if req.Interval == "" {
		req.Interval = DefaultInterval
	}
	minutes, err := IntervalMinutes(req.Interval)
	if err != nil {
		return nil, err
	}
	lookback, err := LookbackBars(entry.UnixMilli(), minutes, s.timeNow().UnixMilli())
	if err != nil {
		return nil, err
	}
	stops := s.stopsOrDefault(req.StopPercents)

	if lookback.Truncated() {
		s.logger.Info("Lookback exceeds one kline page, later candles not covered",
			zap.String("symbol", req.Symbol),
			zap.Int64("bars_needed", lookback.BarsNeeded),
			zap.Int("bars_requested", lookback.BarsRequested))
	}

	resp, err := s.market.GetKlines(ctx, domain.KlineQuery{
		Symbol:   req.Symbol,
		Category: req.Category,
		Interval: req.Interval,
		Start:    entry.UnixMilli(),
		Limit:    lookback.BarsRequested,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching klines for %s: %w", req.Symbol, err)
	}
	candles := NormalizeKlines(resp.List)

	result, err := SimulateStops(req.EntryPrice, side, candles, stops)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Simulated stops since entry",
		zap.String("symbol", req.Symbol),
		zap.String("direction", string(side)),
		zap.Int("candles", len(candles)),
		zap.Int("malformed", result.MalformedSkipped))

	out := &SinceEntryResult{
		Meta: SinceEntryMeta{
			Symbol:          req.Symbol,
			Category:        req.Category,
			Interval:        req.Interval,
			EntryPrice:      req.EntryPrice,
			Direction:       side,
			EntryTime:       entry.UnixMilli(),
			EntryTimeISO:    domain.FormatMillis(entry.UnixMilli()),
			StopPercents:    stops,
			ElapsedMs:       lookback.ElapsedMs,
			BarsNeeded:      lookback.BarsNeeded,
			BarsRequested:   lookback.BarsRequested,
			Truncated:       lookback.Truncated(),
			CandlesReceived: len(candles),
		},
		Result: result,
	}
	if req.IncludeCandles {
		out.Candles = candles
	}
	return out, nil
}

// Ticker returns the upstream ticker for one category as-is. The category
// defaults to spot.
func (s *StopService) Ticker(ctx context.Context, symbol, category string) (*domain.Ticker, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, domain.ErrMissingSymbol
	}
	if category == "" {
		category = "spot"
	}
	return s.market.GetTicker(ctx, symbol, category)
}

// CurrentPrice tries each configured category in order and returns the
// first ticker that lists the symbol.
func (s *StopService) CurrentPrice(ctx context.Context, symbol string) (*domain.Ticker, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, domain.ErrMissingSymbol
	}

	var lastErr error
	for _, category := range s.cfg.TickerCategories {
		t, err := s.market.GetTicker(ctx, symbol, category)
		if err != nil {
			s.logger.Debug("Ticker lookup failed",
				zap.String("symbol", symbol),
				zap.String("category", category),
				zap.Error(err))
			lastErr = err
			continue
		}
		if t.RetCode == 0 && t.Found {
			return t, nil
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: %s in %v", domain.ErrSymbolNotFound, symbol, s.cfg.TickerCategories)
}

func (s *StopService) stopsOrDefault(percents []float64) []float64 {
	if valid := validStopPercents(percents); len(valid) > 0 {
		return valid
	}
	return s.cfg.DefaultStops
}

func parseDirection(direction string) (domain.Side, error) {
	if strings.TrimSpace(direction) == "" {
		return domain.SideLong, nil
	}
	return domain.ParseSide(direction)
}
