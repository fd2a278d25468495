package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"

	"tubewatch/types"
)

// Connection is one subscriber of the push channel. Send must not block: a
// connection that cannot accept a payload right away returns an error and is
// dropped by the hub.
type Connection interface {
	ID() string
	Send(payload []byte) error
	Close()
}

// Hub interface defines the methods for fanning events out to connections
type Hub interface {
	Run(ctx context.Context)
	Broadcast(event types.Event)
	RegisterClient(conn Connection)
	UnregisterClient(conn Connection)
	ClientCount() int
}

// message is a serialized event queued for fan-out
type message struct {
	payload []byte
	state   bool
}

// hub maintains the set of active connections and broadcasts messages to them
type hub struct {
	// Registered connections, only mutated by Run
	clients map[Connection]bool

	// Last state payload fanned out, replayed to every new connection
	lastState []byte

	// Broadcast channel for serialized events
	broadcast chan message

	// Register requests from connections
	register chan Connection

	// Unregister requests from connections
	unregister chan Connection

	// Closed when Run returns
	done chan struct{}

	// Mutex guarding clients for ClientCount
	mu sync.RWMutex

	logger *log.Logger
}

// NewHub creates a new hub whose catch-up snapshot starts at initial
func NewHub(initial types.JobState, logger *log.Logger) Hub {
	h := &hub{
		clients:    make(map[Connection]bool),
		broadcast:  make(chan message, 256),
		register:   make(chan Connection, 16),
		unregister: make(chan Connection, 16),
		done:       make(chan struct{}),
		logger:     logger,
	}
	if payload, err := json.Marshal(types.StateEvent(initial)); err == nil {
		h.lastState = payload
	}
	return h
}

// Run starts the hub's main event loop and blocks until ctx is cancelled
func (h *hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for conn := range h.clients {
			delete(h.clients, conn)
			conn.Close()
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()
			h.logger.Debug("connection registered", "conn", conn.ID())

			if h.lastState != nil {
				h.send(conn, h.lastState)
			}

		case conn := <-h.unregister:
			h.drop(conn)

		case msg := <-h.broadcast:
			if msg.state {
				h.lastState = msg.payload
			}
			h.mu.RLock()
			targets := make([]Connection, 0, len(h.clients))
			for conn := range h.clients {
				targets = append(targets, conn)
			}
			h.mu.RUnlock()

			for _, conn := range targets {
				h.send(conn, msg.payload)
			}
		}
	}
}

// send writes one payload, pruning the connection on failure
func (h *hub) send(conn Connection, payload []byte) {
	if err := conn.Send(payload); err != nil {
		h.logger.Debug("dropping connection after failed write", "conn", conn.ID(), "err", err)
		h.drop(conn)
	}
}

// drop removes and closes a connection; unknown connections are ignored
func (h *hub) drop(conn Connection) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
	}
	h.mu.Unlock()

	if ok {
		conn.Close()
		h.logger.Debug("connection unregistered", "conn", conn.ID())
	}
}

// Broadcast serializes event once and queues it for every connection
func (h *hub) Broadcast(event types.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to serialize event", "type", event.Type, "err", err)
		return
	}

	select {
	case h.broadcast <- message{payload: payload, state: event.Type == types.EventState}:
	case <-h.done:
	}
}

// RegisterClient registers a new connection with the hub
func (h *hub) RegisterClient(conn Connection) {
	select {
	case <-h.done:
		conn.Close()
		return
	default:
	}
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
	}
}

// UnregisterClient unregisters a connection from the hub
func (h *hub) UnregisterClient(conn Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// ClientCount returns the number of registered connections
func (h *hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
