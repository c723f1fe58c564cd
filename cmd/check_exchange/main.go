package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vitos/crypto_stop_replay/internal/config"
	"github.com/vitos/crypto_stop_replay/internal/infrastructure/exchange"
	"github.com/vitos/crypto_stop_replay/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	symbol := flag.String("symbol", "BTCUSDT", "symbol to check")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Testing Bybit Interaction...\n")
	fmt.Printf("Endpoint: %s\n", cfg.Exchange.RESTEndpoint)

	adapter := exchange.NewBybitAdapter(cfg.Exchange.RESTEndpoint, cfg.Timeout(), nil)
	svc := usecase.NewStopService(adapter, usecase.StopServiceConfig{
		TickerCategories: cfg.Exchange.TickerCategories,
	}, nil)
	ctx := context.Background()

	// 1. Ticker across categories
	ticker, err := svc.CurrentPrice(ctx, *symbol)
	if err != nil {
		fmt.Printf("❌ Failed to get price: %v\n", err)
	} else {
		fmt.Printf("✅ Current Price (%s, %s): %f\n", *symbol, ticker.Category, ticker.LastPrice)
	}

	// 2. Last hour of 1m klines
	start := time.Now().Add(-time.Hour).UnixMilli()
	res, err := svc.GetCandles(ctx, usecase.CandleQuery{Symbol: *symbol, Start: start, Limit: 60})
	if err != nil {
		fmt.Printf("❌ Failed to get candles: %v\n", err)
		return
	}
	fmt.Printf("✅ Candles (%s): %d bars, %d malformed\n", *symbol, len(res.Candles), usecase.CountMalformed(res.Candles))
}
