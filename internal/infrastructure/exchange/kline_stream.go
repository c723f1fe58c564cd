package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"github.com/vitos/crypto_stop_replay/internal/domain"
	"go.uber.org/zap"
)

// KlineStream follows one Bybit public kline topic over websocket.
type KlineStream struct {
	wsURL        string
	dialer       *websocket.Dialer
	pingInterval time.Duration
	logger       *zap.Logger
}

func NewKlineStream(wsURL string, logger *zap.Logger) *KlineStream {
	if wsURL == "" {
		wsURL = BybitWSURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KlineStream{
		wsURL:        wsURL,
		dialer:       websocket.DefaultDialer,
		pingInterval: 20 * time.Second,
		logger:       logger,
	}
}

// PublicStreamURL returns the public socket for category. endpoint may be
// the bare public root or already name a category, which is replaced.
func PublicStreamURL(endpoint, category string) string {
	if endpoint == "" {
		endpoint = BybitWSURL
	}
	endpoint = strings.TrimRight(endpoint, "/")
	if i := strings.LastIndex(endpoint, "/"); i >= 0 {
		switch endpoint[i+1:] {
		case "spot", "linear", "inverse", "option":
			endpoint = endpoint[:i]
		}
	}
	return endpoint + "/" + strings.ToLower(category)
}

func KlineTopic(interval, symbol string) string {
	return "kline." + interval + "." + symbol
}

// Run subscribes to the kline topic and calls onCandle for every bar update
// until ctx is done or the connection drops. confirmed is true once Bybit
// has closed the bar.
func (s *KlineStream) Run(ctx context.Context, symbol, interval string, onCandle func(c domain.Candle, confirmed bool)) error {
	conn, _, err := s.dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", s.wsURL, err)
	}
	defer conn.Close()

	topic := KlineTopic(interval, symbol)
	subMsg := map[string]interface{}{
		"op":   "subscribe",
		"args": []string{topic},
	}
	if err := conn.WriteJSON(subMsg); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	s.logger.Info("Subscribed to kline stream", zap.String("topic", topic))

	done := make(chan struct{})
	defer close(done)
	go s.keepAlive(ctx, conn, done)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading kline stream: %w", err)
		}
		handleKlineMessage(message, topic, onCandle)
	}
}

// keepAlive is the only writer after the subscribe message.
func (s *KlineStream) keepAlive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteJSON(map[string]string{"op": "ping"}); err != nil {
				s.logger.Warn("WS ping failed", zap.Error(err))
				conn.Close()
				return
			}
		}
	}
}

// handleKlineMessage decodes a kline push. Subscription acks and pongs are ignored.
func handleKlineMessage(message []byte, topic string, onCandle func(domain.Candle, bool)) int {
	if !gjson.ValidBytes(message) {
		return 0
	}
	if gjson.GetBytes(message, "topic").String() != topic {
		return 0
	}

	n := 0
	gjson.GetBytes(message, "data").ForEach(func(_, bar gjson.Result) bool {
		fields := gjson.GetMany(bar.Raw, "start", "open", "high", "low", "close", "volume", "turnover")
		raw := make(domain.RawKline, len(fields))
		for i, f := range fields {
			raw[i] = f.String()
		}
		c, _ := domain.ParseKline(raw)
		onCandle(c, bar.Get("confirm").Bool())
		n++
		return true
	})
	return n
}
