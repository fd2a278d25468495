package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// Dispatcher consumes raw push-channel payloads in arrival order
type Dispatcher interface {
	Dispatch(raw []byte)
}

// StreamConfig configures a Stream
type StreamConfig struct {
	// ServerURL is the http(s) or ws(s) base URL of the server
	ServerURL string
	Dialer    *websocket.Dialer
	Logger    *log.Logger
	// OnConnect is called after each successful dial
	OnConnect func()
	// MaxBackoff caps the reconnect delay
	MaxBackoff time.Duration
}

// Stream keeps a websocket subscription to the push channel open and feeds
// every message to a Dispatcher from a single goroutine
type Stream struct {
	endpoint   string
	dialer     *websocket.Dialer
	logger     *log.Logger
	onConnect  func()
	maxBackoff time.Duration
}

// NewStream builds a Stream for the server at cfg.ServerURL
func NewStream(cfg StreamConfig) (*Stream, error) {
	endpoint, err := EventsURL(cfg.ServerURL)
	if err != nil {
		return nil, err
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = maxBackoff
	}
	return &Stream{
		endpoint:   endpoint,
		dialer:     cfg.Dialer,
		logger:     cfg.Logger,
		onConnect:  cfg.OnConnect,
		maxBackoff: cfg.MaxBackoff,
	}, nil
}

// Endpoint returns the websocket URL being dialed
func (s *Stream) Endpoint() string {
	return s.endpoint
}

// Run connects, dispatches messages and reconnects with capped exponential
// backoff until ctx is cancelled
func (s *Stream) Run(ctx context.Context, d Dispatcher) error {
	backoff := minBackoff
	for {
		connected, err := s.runOnce(ctx, d)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = minBackoff
		}
		s.logger.Warn("push channel disconnected", "err", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, s.maxBackoff)
	}
}

// runOnce serves a single connection; connected reports whether the dial succeeded
func (s *Stream) runOnce(ctx context.Context, d Dispatcher) (connected bool, err error) {
	conn, _, err := s.dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", s.endpoint, err)
	}
	defer conn.Close()

	s.logger.Info("connected to push channel", "url", s.endpoint)
	if s.onConnect != nil {
		s.onConnect()
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return true, errors.New("server closed the connection")
			}
			return true, err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		d.Dispatch(payload)
	}
}

// EventsURL derives the websocket push-channel URL from a server base URL
func EventsURL(serverURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(serverURL))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws", "":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url %q has no host", serverURL)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/ws/events"
	u.RawQuery = ""
	return u.String(), nil
}
