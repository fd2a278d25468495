package websocket

import (
	"sync"

	"github.com/google/uuid"
)

// StreamConn is a push-channel connection drained by a server-sent events
// response. The HTTP handler owns the response and reads from Messages.
type StreamConn struct {
	id string

	mu     sync.Mutex
	out    chan []byte
	closed bool
}

// NewStreamConn creates an SSE connection with a bounded outbox
func NewStreamConn() *StreamConn {
	return &StreamConn{
		id:  uuid.NewString(),
		out: make(chan []byte, outboxSize),
	}
}

// ID returns the connection identifier
func (s *StreamConn) ID() string {
	return s.id
}

// Send queues a payload without blocking
func (s *StreamConn) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	select {
	case s.out <- payload:
		return nil
	default:
		return ErrOutboxFull
	}
}

// Close ends the stream; the handler observes a closed Messages channel
func (s *StreamConn) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.out)
	}
}

// Messages returns the payloads to write, in broadcast order
func (s *StreamConn) Messages() <-chan []byte {
	return s.out
}
