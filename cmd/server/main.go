package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitos/crypto_stop_replay/internal/config"
	"github.com/vitos/crypto_stop_replay/internal/infrastructure/exchange"
	"github.com/vitos/crypto_stop_replay/internal/infrastructure/logger"
	"github.com/vitos/crypto_stop_replay/internal/usecase"
	"github.com/vitos/crypto_stop_replay/internal/web"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Exchange (Bybit public market data)
	bybitAdapter := exchange.NewBybitAdapter(cfg.Exchange.RESTEndpoint, cfg.Timeout(), log)

	// 4. Init Service
	svc := usecase.NewStopService(bybitAdapter, usecase.StopServiceConfig{
		DefaultCategory:  cfg.Simulation.DefaultCategory,
		DefaultStops:     cfg.Simulation.DefaultStops,
		TickerCategories: cfg.Exchange.TickerCategories,
	}, log)

	// 5. Start Server
	server := web.NewServer(cfg.Server.Port, svc, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 6. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Shutdown failed", zap.Error(err))
	}
}
