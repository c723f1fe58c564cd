package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/crypto_stop_replay/internal/domain"
)

const klinePayload = `{
  "retCode": 0,
  "retMsg": "OK",
  "result": {
    "symbol": "BTCUSDT",
    "category": "linear",
    "list": [
      ["1704067260000", "42300.5", "42350", "42250", "42310", "12.3", "520000.1"],
      ["1704067200000", "42280", "42320", "42200.5", "42300.5", "8.1", "342000"]
    ]
  },
  "time": 1704067300000
}`

func newTestAdapter(t *testing.T, handler http.HandlerFunc) (*BybitAdapter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewBybitAdapter(srv.URL, 2*time.Second, nil), srv
}

func TestGetKlines(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(klinePayload))
	})

	resp, err := adapter.GetKlines(context.Background(), domain.KlineQuery{
		Symbol:   "BTCUSDT",
		Category: "linear",
		Interval: "1",
		Start:    1704067200000,
		Limit:    2,
	})
	require.NoError(t, err)

	assert.Equal(t, "/v5/market/kline", gotPath)
	assert.Equal(t, []string{"BTCUSDT"}, gotQuery["symbol"])
	assert.Equal(t, []string{"linear"}, gotQuery["category"])
	assert.Equal(t, []string{"1"}, gotQuery["interval"])
	assert.Equal(t, []string{"1704067200000"}, gotQuery["start"])
	assert.Equal(t, []string{"2"}, gotQuery["limit"])
	assert.NotContains(t, gotQuery, "end")

	require.Len(t, resp.List, 2)
	assert.Equal(t, domain.RawKline{"1704067260000", "42300.5", "42350", "42250", "42310", "12.3", "520000.1"}, resp.List[0])
	assert.JSONEq(t, klinePayload, string(resp.Raw))
}

func TestGetKlines_NumericFields(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"retCode":0,"result":{"list":[[1704067200000,100,101.5,99,100.5,3,300]]}}`))
	})

	resp, err := adapter.GetKlines(context.Background(), domain.KlineQuery{Symbol: "X", Category: "spot", Interval: "1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RawKline{"1704067200000", "100", "101.5", "99", "100.5", "3", "300"}, resp.List[0])
}

func TestGetKlines_EmptyList(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{}}`))
	})

	resp, err := adapter.GetKlines(context.Background(), domain.KlineQuery{Symbol: "X", Category: "spot", Interval: "1"})
	require.NoError(t, err)
	assert.Empty(t, resp.List)
}

func TestGetKlines_NonJSONResponse(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("<html><body>403 ERROR - The request could not be satisfied. CloudFront</body></html>"))
	})

	_, err := adapter.GetKlines(context.Background(), domain.KlineQuery{Symbol: "BTCUSDT", Category: "linear", Interval: "1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.ErrorIs(t, err, domain.ErrNotJSON)
	assert.NotErrorIs(t, err, domain.ErrBadJSON)

	var upErr *domain.UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusForbidden, upErr.Status)
	assert.Contains(t, upErr.BodyPreview, "CloudFront")
}

func TestGetKlines_InvalidJSONWithJSONContentType(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"retCode":0,"result":`))
	})

	_, err := adapter.GetKlines(context.Background(), domain.KlineQuery{Symbol: "BTCUSDT", Category: "linear", Interval: "1"})
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.ErrorIs(t, err, domain.ErrBadJSON)
	assert.NotErrorIs(t, err, domain.ErrNotJSON)
}

func TestGetKlines_RetCodeError(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"retCode":10001,"retMsg":"params error: symbol invalid","result":{}}`))
	})

	_, err := adapter.GetKlines(context.Background(), domain.KlineQuery{Symbol: "NOPE", Category: "linear", Interval: "1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Contains(t, err.Error(), "symbol invalid")
}

func TestGetKlines_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	adapter := NewBybitAdapter(srv.URL, time.Second, nil)

	_, err := adapter.GetKlines(context.Background(), domain.KlineQuery{Symbol: "BTCUSDT", Category: "linear", Interval: "1"})
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestGetTicker(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/market/tickers", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("category") == "spot" {
			w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"category":"spot","list":[]}}`))
			return
		}
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"category":"linear","list":[{"symbol":"BTCUSDT","lastPrice":"42310.5"}]}}`))
	})

	ticker, err := adapter.GetTicker(context.Background(), "BTCUSDT", "linear")
	require.NoError(t, err)
	assert.True(t, ticker.Found)
	assert.Equal(t, 42310.5, ticker.LastPrice)
	assert.Equal(t, http.StatusOK, ticker.HTTPStatus)
	assert.Contains(t, string(ticker.Raw), `"lastPrice":"42310.5"`)

	ticker, err = adapter.GetTicker(context.Background(), "BTCUSDT", "spot")
	require.NoError(t, err)
	assert.False(t, ticker.Found)
	assert.Equal(t, int64(0), ticker.RetCode)
}

func TestGetTicker_RetCodeIsReportedNotFailed(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"retCode":10001,"retMsg":"Not supported symbols","result":{}}`))
	})

	ticker, err := adapter.GetTicker(context.Background(), "NOPE", "spot")
	require.NoError(t, err)
	assert.Equal(t, int64(10001), ticker.RetCode)
	assert.Equal(t, "Not supported symbols", ticker.RetMsg)
	assert.False(t, ticker.Found)
}
