package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"tubewatch/websocket"
)

// keepAlive is the interval between SSE comment frames on an idle stream
const keepAlive = 30 * time.Second

// EventHandler serves the push channel over websocket and server-sent events
type EventHandler struct {
	hub    websocket.Hub
	logger *log.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(hub websocket.Hub, logger *log.Logger) *EventHandler {
	return &EventHandler{hub: hub, logger: logger}
}

// HandleWebSocket upgrades the request and subscribes it to every event
func (h *EventHandler) HandleWebSocket(c *gin.Context) {
	upgrader := websocket.GetUpgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, h.logger)
	h.hub.RegisterClient(client)

	// Start client pumps
	client.StartPumps()
}

// HandleSSE streams every event as a server-sent `message` until the client goes away
func (h *EventHandler) HandleSSE(c *gin.Context) {
	conn := websocket.NewStreamConn()
	h.hub.RegisterClient(conn)
	defer h.hub.UnregisterClient(conn)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	done := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case payload, ok := <-conn.Messages():
			if !ok {
				return false
			}
			c.SSEvent("message", string(payload))
			return true
		case <-ticker.C:
			_, err := io.WriteString(w, ": ping\n\n")
			return err == nil
		case <-done:
			return false
		}
	})
}

// EventStreamFallback routes any request that asks for text/event-stream to the SSE handler
func (h *EventHandler) EventStreamFallback() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
			h.HandleSSE(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
