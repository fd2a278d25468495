package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"tubewatch/services"
	"tubewatch/types"
)

// ChannelRefresher lists followed channels and announces new uploads
type ChannelRefresher interface {
	RefreshAll(ctx context.Context) error
	RefreshChannel(ctx context.Context, name string) ([]types.Video, error)
	Refreshing() bool
}

// ChannelHandler handles channel endpoints
type ChannelHandler struct {
	ctx       context.Context
	catalog   services.Catalog
	refresher ChannelRefresher
	hub       services.Broadcaster
	logger    *log.Logger
}

// NewChannelHandler creates a new channel handler. Refreshes started by
// requests run under ctx so they outlive the request but not the server.
func NewChannelHandler(ctx context.Context, cat services.Catalog, refresher ChannelRefresher, hub services.Broadcaster, logger *log.Logger) *ChannelHandler {
	return &ChannelHandler{
		ctx:       ctx,
		catalog:   cat,
		refresher: refresher,
		hub:       hub,
		logger:    logger,
	}
}

type channelRequest struct {
	Name string `json:"name" binding:"required"`
}

// ListChannels returns the followed channels
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	channels, err := h.catalog.ListChannels(c.Request.Context())
	if err != nil {
		h.logger.Error("list channels failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list channels"})
		return
	}
	c.JSON(http.StatusOK, channels)
}

// AddChannel follows a channel and fetches its videos in the background
func (h *ChannelHandler) AddChannel(c *gin.Context) {
	var req channelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel name is required"})
		return
	}
	name := strings.TrimPrefix(strings.TrimSpace(req.Name), "@")

	added, err := h.catalog.AddChannel(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !added {
		c.JSON(http.StatusOK, gin.H{"message": "Channel already followed", "name": name})
		return
	}

	go func() {
		if _, err := h.refresher.RefreshChannel(h.ctx, name); err != nil {
			h.logger.Warn("initial channel fetch failed", "channel", name, "err", err)
		}
	}()

	c.JSON(http.StatusCreated, gin.H{"message": "Channel added", "name": name})
}

// RemoveChannel unfollows a channel; unknown channels are a conflict
func (h *ChannelHandler) RemoveChannel(c *gin.Context) {
	var req channelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel name is required"})
		return
	}

	removed, err := h.catalog.RemoveChannel(c.Request.Context(), req.Name)
	if err != nil {
		h.logger.Error("remove channel failed", "channel", req.Name, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove channel"})
		return
	}
	if !removed {
		c.JSON(http.StatusConflict, gin.H{"error": "Channel does not exist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Channel deleted"})
}

// RefreshVideos starts a refresh of every followed channel
func (h *ChannelHandler) RefreshVideos(c *gin.Context) {
	if h.refresher.Refreshing() {
		c.JSON(http.StatusConflict, gin.H{"error": services.ErrRefreshRunning.Error()})
		return
	}

	h.hub.Broadcast(types.LogLineEvent("Manual refresh started..."))
	go func() {
		if err := h.refresher.RefreshAll(h.ctx); err != nil && !errors.Is(err, services.ErrRefreshRunning) {
			h.logger.Error("manual refresh failed", "err", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"message": "Refresh started"})
}
