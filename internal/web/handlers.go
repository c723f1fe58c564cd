package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/vitos/crypto_stop_replay/internal/domain"
	"github.com/vitos/crypto_stop_replay/internal/usecase"
	"go.uber.org/zap"
)

var errBadParam = errors.New("invalid query parameter")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleBybitTicker relays the upstream ticker body and status unchanged.
func (s *Server) handleBybitTicker(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := q.Get("symbol")
	if symbol == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Missing 'symbol' query param (example: ?symbol=BTCUSDT)",
		})
		return
	}

	ticker, err := s.service.Ticker(r.Context(), symbol, q.Get("category"))
	if err != nil {
		var upErr *domain.UpstreamError
		switch {
		case errors.Is(err, domain.ErrNotJSON) && errors.As(err, &upErr):
			s.logger.Error("Bybit non-JSON response",
				zap.Int("status", upErr.Status),
				zap.String("symbol", symbol))
			s.writeJSON(w, upErr.Status, map[string]interface{}{
				"error":       "Upstream returned non-JSON (likely CloudFront error)",
				"status":      upErr.Status,
				"bodyPreview": upErr.BodyPreview,
			})
		case errors.Is(err, domain.ErrBadJSON):
			s.logger.Error("Bybit JSON parse failed",
				zap.String("symbol", symbol),
				zap.Error(err))
			s.writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "JSON parse failed",
				"details": err.Error(),
			})
		default:
			s.writeError(w, err)
		}
		return
	}

	status := ticker.HTTPStatus
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(ticker.Raw)
}

func (s *Server) handleCurrentPrice(w http.ResponseWriter, r *http.Request) {
	ticker, err := s.service.CurrentPrice(r.Context(), r.URL.Query().Get("symbol"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ticker)
}

func (s *Server) handleGetCandles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := queryInt64(q.Get("start"))
	if err != nil {
		s.writeError(w, fmt.Errorf("start: %w", err))
		return
	}
	end, err := queryInt64(q.Get("end"))
	if err != nil {
		s.writeError(w, fmt.Errorf("end: %w", err))
		return
	}
	limit, err := queryInt64(q.Get("limit"))
	if err != nil {
		s.writeError(w, fmt.Errorf("limit: %w", err))
		return
	}

	res, err := s.service.GetCandles(r.Context(), usecase.CandleQuery{
		Symbol:   q.Get("symbol"),
		Category: q.Get("category"),
		Interval: q.Get("interval"),
		Start:    start,
		End:      end,
		Limit:    int(limit),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

type simulateStopsRequest struct {
	EntryPrice   float64         `json:"entry_price"`
	Direction    string          `json:"direction"`
	Candles      []domain.Candle `json:"candles"`
	StopPercents []float64       `json:"stop_percents"`
}

func (s *Server) handleSimulateStops(w http.ResponseWriter, r *http.Request) {
	var req simulateStopsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	res, err := s.service.SimulateStops(req.EntryPrice, req.Direction, req.Candles, req.StopPercents)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSimulateSinceEntry(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	res, err := s.service.SimulateStopsSinceEntry(r.Context(), usecase.SinceEntryRequest{
		Symbol:         q.Get("symbol"),
		Category:       q.Get("category"),
		Interval:       q.Get("interval"),
		EntryPrice:     queryPrice(q.Get("entry_price")),
		EntryDate:      q.Get("entry_date"),
		Direction:      q.Get("direction"),
		StopPercents:   parseStops(q["stops"]),
		IncludeCandles: queryBool(q.Get("include_candles")),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func queryInt64(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errBadParam, v)
	}
	return n, nil
}

// queryPrice returns NaN for anything unparsable so the service rejects it.
func queryPrice(v string) float64 {
	p, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return math.NaN()
	}
	return p
}

func queryBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

// parseStops accepts "10,15,20" and repeated stops params. Unparsable
// entries are dropped.
func parseStops(values []string) []float64 {
	var out []float64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err == nil {
				out = append(out, p)
			}
		}
	}
	return out
}
