package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/vitos/crypto_stop_replay/internal/config"
	"github.com/vitos/crypto_stop_replay/internal/domain"
	"github.com/vitos/crypto_stop_replay/internal/infrastructure/exchange"
	"github.com/vitos/crypto_stop_replay/internal/infrastructure/logger"
	"github.com/vitos/crypto_stop_replay/internal/usecase"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// stopwatch replays stops since entry and then keeps following the live
// kline stream, logging each stop the moment it is first touched.
func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	symbol := flag.String("symbol", "", "symbol, e.g. BTCUSDT")
	category := flag.String("category", "linear", "bybit category")
	interval := flag.String("interval", "1", "kline interval")
	entryPrice := flag.Float64("entry-price", 0, "entry price")
	entryDate := flag.String("entry-date", "", "entry date (ISO-8601 or epoch ms)")
	direction := flag.String("direction", "LONG", "LONG or SHORT")
	stops := flag.String("stops", "", "comma separated stop percents")
	statusEvery := flag.Duration("status-every", time.Minute, "interval between status lines")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	adapter := exchange.NewBybitAdapter(cfg.Exchange.RESTEndpoint, cfg.Timeout(), log)
	svc := usecase.NewStopService(adapter, usecase.StopServiceConfig{
		DefaultCategory: cfg.Simulation.DefaultCategory,
		DefaultStops:    cfg.Simulation.DefaultStops,
	}, log)

	// 1. Replay since entry
	replay, err := svc.SimulateStopsSinceEntry(ctx, usecase.SinceEntryRequest{
		Symbol:         *symbol,
		Category:       *category,
		Interval:       *interval,
		EntryPrice:     *entryPrice,
		EntryDate:      *entryDate,
		Direction:      *direction,
		StopPercents:   parseStops(*stops),
		IncludeCandles: true,
	})
	if err != nil {
		log.Fatal("Replay failed", zap.Error(err))
	}
	if replay.Meta.Truncated {
		log.Warn("Replay covers only the first kline page after entry",
			zap.Int64("bars_needed", replay.Meta.BarsNeeded),
			zap.Int("bars_requested", replay.Meta.BarsRequested))
	}

	tracker, err := usecase.NewStopTracker(*entryPrice, replay.Meta.Direction, replay.Meta.StopPercents, replay.Candles)
	if err != nil {
		log.Fatal("Tracker init failed", zap.Error(err))
	}
	logStops(log, tracker.Snapshot())

	if tracker.Pending() == 0 {
		log.Info("All stops already hit")
		return
	}

	// 2. Follow live bars, with a periodic status line
	group, gctx := errgroup.WithContext(ctx)
	wsURL := exchange.PublicStreamURL(cfg.Exchange.WSEndpoint, replay.Meta.Category)
	stream := exchange.NewKlineStream(wsURL, log)
	group.Go(func() error {
		err := stream.Run(gctx, *symbol, *interval, func(c domain.Candle, confirmed bool) {
			for _, key := range tracker.Apply(c) {
				log.Info("Stop hit",
					zap.String("stop_percent", string(key)),
					zap.String("time", c.StartTimeISO),
					zap.Float64("low", c.Low),
					zap.Float64("high", c.High),
					zap.Bool("confirmed", confirmed))
			}
			if tracker.Pending() == 0 {
				log.Info("All stops hit")
				cancel()
			}
		})
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("kline stream stopped: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		ticker := time.NewTicker(*statusEvery)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				snap := tracker.Snapshot()
				log.Info("Watching",
					zap.Int("pending", tracker.Pending()),
					zap.Int("candles", snap.CandlesProcessed))
			}
		}
	})
	if err := group.Wait(); err != nil {
		log.Error("Stop watch failed", zap.Error(err))
	}
	logStops(log, tracker.Snapshot())
}

func logStops(log *zap.Logger, res *domain.SimulationResult) {
	for key, s := range res.Stops {
		fields := []zap.Field{
			zap.String("stop_percent", string(key)),
			zap.Float64("trigger_price", s.TriggerPrice),
			zap.Bool("hit", s.Hit),
		}
		if s.FirstHitTimeISO != nil {
			fields = append(fields, zap.String("first_hit", *s.FirstHitTimeISO))
		}
		log.Info("Stop status", fields...)
	}
}

func parseStops(v string) []float64 {
	var out []float64
	for _, part := range strings.Split(v, ",") {
		if p, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err == nil {
			out = append(out, p)
		}
	}
	return out
}
