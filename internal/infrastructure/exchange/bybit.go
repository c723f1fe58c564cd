package exchange

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/vitos/crypto_stop_replay/internal/domain"
	"go.uber.org/zap"
)

const (
	BybitBaseURL = "https://api.bybit.com"
	BybitWSURL   = "wss://stream.bybit.com/v5/public/linear"

	bodyPreviewLen = 400
)

// BybitAdapter talks to the public Bybit v5 market endpoints.
type BybitAdapter struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewBybitAdapter(baseURL string, timeout time.Duration, logger *zap.Logger) *BybitAdapter {
	if baseURL == "" {
		baseURL = BybitBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BybitAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// --- REST API ---

// getPublic performs one unsigned GET and returns the body once it is known
// to be JSON. CDN error pages (HTML with a 403) are reported as UpstreamError.
func (b *BybitAdapter) getPublic(ctx context.Context, path string, params url.Values) ([]byte, int, error) {
	endpoint := b.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, &domain.UpstreamError{Message: "building request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, 0, &domain.UpstreamError{Message: "GET " + path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &domain.UpstreamError{Status: resp.StatusCode, Message: "reading body", Err: err}
	}

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		b.logger.Warn("Bybit non-JSON response",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("content_type", ct))
		return nil, resp.StatusCode, &domain.UpstreamError{
			Status:      resp.StatusCode,
			Message:     "GET " + path,
			BodyPreview: preview(body),
			Err:         domain.ErrNotJSON,
		}
	}
	if !gjson.ValidBytes(body) {
		return nil, resp.StatusCode, &domain.UpstreamError{
			Status:      resp.StatusCode,
			Message:     "GET " + path,
			BodyPreview: preview(body),
			Err:         domain.ErrBadJSON,
		}
	}

	return body, resp.StatusCode, nil
}

// GetKlines fetches one page of bars. Bybit lists them newest first.
func (b *BybitAdapter) GetKlines(ctx context.Context, q domain.KlineQuery) (*domain.KlineResponse, error) {
	params := url.Values{}
	params.Set("category", q.Category)
	params.Set("symbol", q.Symbol)
	params.Set("interval", q.Interval)
	if q.Start > 0 {
		params.Set("start", strconv.FormatInt(q.Start, 10))
	}
	if q.End > 0 {
		params.Set("end", strconv.FormatInt(q.End, 10))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	body, status, err := b.getPublic(ctx, "/v5/market/kline", params)
	if err != nil {
		return nil, err
	}

	env := gjson.GetManyBytes(body, "retCode", "retMsg", "result.list")
	if code := env[0].Int(); code != 0 {
		return nil, &domain.UpstreamError{
			Status:  status,
			Message: fmt.Sprintf("bybit kline error %d: %s", code, env[1].String()),
		}
	}

	var list []domain.RawKline
	env[2].ForEach(func(_, bar gjson.Result) bool {
		fields := bar.Array()
		raw := make(domain.RawKline, len(fields))
		for i, f := range fields {
			raw[i] = f.String()
		}
		list = append(list, raw)
		return true
	})

	b.logger.Debug("Fetched klines",
		zap.String("symbol", q.Symbol),
		zap.String("interval", q.Interval),
		zap.Int("count", len(list)))

	return &domain.KlineResponse{Raw: body, List: list}, nil
}

// GetTicker returns the V5 ticker. A non-zero retCode is not an error here;
// it is reported on the Ticker so callers can pass it through.
func (b *BybitAdapter) GetTicker(ctx context.Context, symbol, category string) (*domain.Ticker, error) {
	params := url.Values{}
	params.Set("category", category)
	params.Set("symbol", symbol)

	body, status, err := b.getPublic(ctx, "/v5/market/tickers", params)
	if err != nil {
		return nil, err
	}

	env := gjson.GetManyBytes(body, "retCode", "retMsg", "result.list.0.lastPrice")
	t := &domain.Ticker{
		Symbol:     symbol,
		Category:   category,
		RetCode:    env[0].Int(),
		RetMsg:     env[1].String(),
		HTTPStatus: status,
		Raw:        body,
	}
	if env[2].Exists() {
		price, err := strconv.ParseFloat(env[2].String(), 64)
		if err == nil {
			t.LastPrice = price
			t.Found = true
		}
	}
	return t, nil
}

func preview(body []byte) string {
	if len(body) > bodyPreviewLen {
		body = body[:bodyPreviewLen]
	}
	return string(body)
}
