package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tubewatch/services"
	"tubewatch/websocket"
)

// Version is reported by the health endpoints
const Version = "1.0.0"

// HealthHandler handles health check endpoints
type HealthHandler struct {
	hub   websocket.Hub
	store services.JobStore
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(hub websocket.Hub, store services.JobStore) *HealthHandler {
	return &HealthHandler{hub: hub, store: store}
}

// HealthCheck returns the health status of the service
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "tubewatch",
		"version":   Version,
		"timestamp": time.Now().Unix(),
	})
}

// APIStatus returns push-channel and job counters
func (h *HealthHandler) APIStatus(c *gin.Context) {
	state := h.store.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"message":     "tubewatch API is running",
		"status":      "healthy",
		"version":     Version,
		"connections": h.hub.ClientCount(),
		"downloading": len(state.Downloading),
		"summarizing": len(state.Summarizing),
	})
}
