package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vitos/crypto_stop_replay/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	router  *http.ServeMux
	server  *http.Server
	service *usecase.StopService
	logger  *zap.Logger
}

func NewServer(port int, service *usecase.StopService, logger *zap.Logger) *Server {
	s := &Server{
		router:  http.NewServeMux(),
		service: service,
		logger:  logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.withRequestLog(s.router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /health", s.handleHealth)

	// Upstream ticker passthrough and price lookup
	s.router.HandleFunc("GET /api/bybit", s.handleBybitTicker)
	s.router.HandleFunc("GET /api/price", s.handleCurrentPrice)

	// Candles
	s.router.HandleFunc("GET /api/candles", s.handleGetCandles)

	// Stop simulation
	s.router.HandleFunc("POST /api/simulate-stops", s.handleSimulateStops)
	s.router.HandleFunc("GET /api/simulate-stops-since-entry", s.handleSimulateSinceEntry)
}

// Handler returns the routed handler with request logging, as served by Start.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
