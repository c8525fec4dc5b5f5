package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resinat/Portwatch/internal/telemetry"
	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
)

// StreamPath is the controller's live port-stats WebSocket endpoint.
const StreamPath = "/api/ws"

// StreamConfig configures a StreamSource.
type StreamConfig struct {
	// URL is the ws:// or wss:// endpoint. An http(s) base URL is accepted
	// and rewritten with StreamPath appended.
	URL string
	// Token, when set, is sent as a Bearer Authorization header.
	Token string
	// InitialReconnect and MaxReconnect bound the reconnect backoff.
	InitialReconnect time.Duration
	MaxReconnect     time.Duration
	// ReadLimit caps a single frame's size in bytes.
	ReadLimit int64
	// OnConnect is called after every successful (re)connect.
	OnConnect func(reconnect bool)
	// OnDecodeError is called for every frame that cannot be decoded.
	OnDecodeError func(err error)
}

// StreamSource yields live events from the controller's WebSocket stream,
// reconnecting with exponential backoff when the connection drops. It is
// meant for a single consumer.
type StreamSource struct {
	cfg StreamConfig
	url string

	mu         sync.Mutex
	conn       *websocket.Conn
	connected  bool
	reconnects atomic.Int64
}

// NewStreamSource creates a source for the given configuration.
func NewStreamSource(cfg StreamConfig) *StreamSource {
	if cfg.InitialReconnect <= 0 {
		cfg.InitialReconnect = 500 * time.Millisecond
	}
	if cfg.MaxReconnect <= 0 {
		cfg.MaxReconnect = 30 * time.Second
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = 1 << 20
	}
	return &StreamSource{cfg: cfg, url: StreamURL(cfg.URL)}
}

// StreamURL derives the WebSocket URL from a controller base URL.
func StreamURL(base string) string {
	switch {
	case strings.HasPrefix(base, "ws://"), strings.HasPrefix(base, "wss://"):
		return base
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimRight(strings.TrimPrefix(base, "https://"), "/") + StreamPath
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimRight(strings.TrimPrefix(base, "http://"), "/") + StreamPath
	default:
		return "ws://" + strings.TrimRight(base, "/") + StreamPath
	}
}

// Reconnects returns the number of reconnects after the first connection.
func (s *StreamSource) Reconnects() int64 {
	return s.reconnects.Load()
}

// Next blocks until the next event is available or ctx is done.
func (s *StreamSource) Next(ctx context.Context) (telemetry.Event, error) {
	for {
		conn, err := s.ensureConn(ctx)
		if err != nil {
			return telemetry.Event{}, err
		}

		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return telemetry.Event{}, ctx.Err()
			}
			log.Printf("[controller] stream read failed, reconnecting: %v", err)
			s.dropConn(conn)
			continue
		}

		ev, err := decodeStreamFrame(data)
		if err != nil {
			log.Printf("[controller] dropping undecodable stream frame: %v", err)
			if s.cfg.OnDecodeError != nil {
				s.cfg.OnDecodeError(err)
			}
			continue
		}
		return ev, nil
	}
}

// Close terminates the current connection, if any.
func (s *StreamSource) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "shutting down")
}

func decodeStreamFrame(data []byte) (telemetry.Event, error) {
	var msg StatsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return telemetry.Event{}, fmt.Errorf("decode frame: %w", err)
	}
	if msg.Data == nil {
		return telemetry.Event{}, errors.New("decode frame: missing data")
	}
	return msg.ToEvent()
}

func (s *StreamSource) ensureConn(ctx context.Context) (*websocket.Conn, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		return conn, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialReconnect
	b.MaxInterval = s.cfg.MaxReconnect

	for {
		conn, err := s.dial(ctx)
		if err == nil {
			s.mu.Lock()
			s.conn = conn
			reconnect := s.connected
			s.connected = true
			s.mu.Unlock()
			if reconnect {
				s.reconnects.Add(1)
			}
			log.Printf("[controller] stream connected to %s", s.url)
			if s.cfg.OnConnect != nil {
				s.cfg.OnConnect(reconnect)
			}
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		wait := b.NextBackOff()
		log.Printf("[controller] stream dial %s failed, retrying in %s: %v", s.url, wait, err)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *StreamSource) dial(ctx context.Context) (*websocket.Conn, error) {
	opts := &websocket.DialOptions{}
	if s.cfg.Token != "" {
		opts.HTTPHeader = http.Header{"Authorization": []string{"Bearer " + s.cfg.Token}}
	}
	conn, _, err := websocket.Dial(ctx, s.url, opts)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(s.cfg.ReadLimit)
	return conn, nil
}

func (s *StreamSource) dropConn(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	_ = conn.CloseNow()
}
