// Package live connects the window engine to a streaming tick feed.
// The stream path reuses the exact batch engine, so a replayed capture
// and a live session produce identical factors tick for tick.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ferranfont/AI-random-forest/internal/domain"
	"github.com/ferranfont/AI-random-forest/internal/observability"
)

// FeedConfig configures WebSocket feed behavior.
type FeedConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultFeedConfig returns default feed configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// tickMessage is the wire format of one feed message.
type tickMessage struct {
	TimestampMs int64    `json:"ts_ms"`
	Price       *float64 `json:"price"`
	Volume      *float64 `json:"volume"`
	Side        string   `json:"side"`
	Bid         *float64 `json:"bid"`
	Ask         *float64 `json:"ask"`
}

// Feed is a reconnecting WebSocket tick feed client.
type Feed struct {
	endpoint string
	config   FeedConfig
	logger   *zap.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	out  chan *domain.Tick
	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewFeed connects to the endpoint and starts the read and ping loops.
func NewFeed(ctx context.Context, endpoint string, config *FeedConfig, logger *zap.Logger) (*Feed, error) {
	cfg := DefaultFeedConfig()
	if config != nil {
		cfg = *config
	}

	f := &Feed{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		// Blocking send on a deep buffer: bursts are absorbed, ticks
		// are never dropped.
		out:  make(chan *domain.Tick, 10000),
		done: make(chan struct{}),
	}

	if err := f.connect(ctx); err != nil {
		return nil, err
	}

	f.wg.Add(1)
	go f.readLoop()

	f.wg.Add(1)
	go f.pingLoop()

	return f, nil
}

// Ticks returns the tick channel. Closed when the feed shuts down.
func (f *Feed) Ticks() <-chan *domain.Tick {
	return f.out
}

// connect establishes the WebSocket connection.
func (f *Feed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	f.conn = conn
	return nil
}

// Close closes the connection and the tick channel.
func (f *Feed) Close() error {
	if f.closed.Swap(true) {
		return nil // Already closed
	}

	close(f.done)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		f.conn.Close()
	}
	f.connMu.Unlock()

	f.wg.Wait()
	close(f.out)
	return nil
}

// readLoop reads messages and dispatches ticks to the channel.
func (f *Feed) readLoop() {
	defer f.wg.Done()

	reconnectDelay := f.config.ReconnectDelay

	for !f.closed.Load() {
		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		if conn == nil {
			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() {
				return
			}

			if !f.reconnecting.Swap(true) {
				go f.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > f.config.MaxReconnectDelay {
				reconnectDelay = f.config.MaxReconnectDelay
			}

			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = f.config.ReconnectDelay

		f.handleMessage(message)
	}
}

// reconnect waits out the backoff delay and re-dials.
func (f *Feed) reconnect(delay time.Duration) {
	defer f.reconnecting.Store(false)

	if f.closed.Load() {
		return
	}

	select {
	case <-f.done:
		return
	case <-time.After(delay):
	}

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
	f.connMu.Unlock()

	observability.DefaultMetrics.WSReconnects.Inc()
	f.logger.Warn("feed reconnecting", zap.Duration("delay", delay))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := f.connect(ctx); err != nil {
		f.logger.Warn("feed reconnect failed", zap.Error(err))
		// Retry happens on the next read error
		return
	}

	f.logger.Info("feed reconnected")
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (f *Feed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			if f.conn != nil {
				f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
				// A failed ping surfaces as a read error; the reader
				// owns reconnection.
				f.conn.WriteMessage(websocket.PingMessage, nil)
			}
			f.connMu.Unlock()
		}
	}
}

// handleMessage parses one feed message into a tick. Messages without a
// usable timestamp are dropped, mirroring file ingestion.
func (f *Feed) handleMessage(message []byte) {
	received := time.Now()

	var msg tickMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		observability.RecordRowDropped("bad_message")
		f.logger.Debug("unparsable feed message", zap.Error(err))
		return
	}
	observability.DefaultMetrics.WSMessagesReceived.Inc()

	if msg.TimestampMs <= 0 {
		observability.RecordRowDropped("bad_timestamp")
		return
	}

	side := msg.Side
	if side == "" {
		side = domain.SideUnknown
	}

	tick := &domain.Tick{
		Timestamp: time.UnixMilli(msg.TimestampMs).UTC(),
		Price:     msg.Price,
		Volume:    msg.Volume,
		Side:      side,
		Bid:       msg.Bid,
		Ask:       msg.Ask,
	}

	select {
	case f.out <- tick:
	case <-f.done:
		return
	}

	observability.RecordTickIngested()
	observability.DefaultMetrics.WSMessageLatency.Observe(time.Since(received).Seconds())
}
