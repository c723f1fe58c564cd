package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vitos/crypto_stop_replay/internal/domain"
	"go.uber.org/zap"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError maps domain errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidEntryPrice),
		errors.Is(err, domain.ErrInvalidDirection),
		errors.Is(err, domain.ErrFutureEntryDate),
		errors.Is(err, domain.ErrInvalidEntryDate),
		errors.Is(err, domain.ErrInvalidInterval),
		errors.Is(err, domain.ErrMissingSymbol),
		errors.Is(err, errBadParam):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSymbolNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUpstream):
		status = http.StatusBadGateway
	}

	if status >= 500 {
		s.logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
