package handlers

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"tubewatch/catalog"
	"tubewatch/services"
	"tubewatch/types"
)

// VideoHandler handles catalog endpoints for single videos
type VideoHandler struct {
	catalog services.Catalog
	media   services.MediaFiles
	runner  services.Runner
	hub     services.Broadcaster
	logger  *log.Logger
}

// NewVideoHandler creates a new video handler
func NewVideoHandler(cat services.Catalog, media services.MediaFiles, runner services.Runner, hub services.Broadcaster, logger *log.Logger) *VideoHandler {
	return &VideoHandler{
		catalog: cat,
		media:   media,
		runner:  runner,
		hub:     hub,
		logger:  logger,
	}
}

type watchLaterRequest struct {
	VideoID string `json:"videoId" binding:"required"`
}

// ListVideos returns catalog videos matching the optional q parameter
func (h *VideoHandler) ListVideos(c *gin.Context) {
	videos, err := h.catalog.ListVideos(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.logger.Error("list videos failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list videos"})
		return
	}
	c.JSON(http.StatusOK, videos)
}

// GetVideo returns a single video
func (h *VideoHandler) GetVideo(c *gin.Context) {
	video, err := h.catalog.GetVideo(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, video)
}

// IgnoreVideo toggles the ignored flag and broadcasts the new value
func (h *VideoHandler) IgnoreVideo(c *gin.Context) {
	var req videoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video id is required"})
		return
	}

	ignored, err := h.catalog.ToggleIgnored(c.Request.Context(), req.ID)
	if err != nil {
		respondCatalogError(c, err)
		return
	}

	h.hub.Broadcast(types.IgnoredEvent(req.ID, ignored))
	c.JSON(http.StatusOK, ignored)
}

// DeleteVideo removes the downloaded files and marks the video not downloaded
func (h *VideoHandler) DeleteVideo(c *gin.Context) {
	var req videoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video id is required"})
		return
	}

	removed, err := h.media.Remove(req.ID)
	for _, name := range removed {
		h.hub.Broadcast(types.LogLineEvent("deleted " + name))
	}
	if err != nil {
		h.hub.Broadcast(types.LogLineEvent(err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	downloaded := false
	empty := ""
	if _, err := h.catalog.UpdateVideo(c.Request.Context(), req.ID, catalog.VideoPatch{
		Downloaded: &downloaded,
		Location:   &empty,
		Format:     &empty,
	}); err != nil {
		respondCatalogError(c, err)
		return
	}

	h.hub.Broadcast(types.DownloadedEvent(req.ID, false, nil))
	c.Status(http.StatusOK)
}

// AddToWatchLater lists a video and starts its download if needed
func (h *VideoHandler) AddToWatchLater(c *gin.Context) {
	var req watchLaterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "videoId is required"})
		return
	}

	ctx := c.Request.Context()
	added, err := h.catalog.AddToWatchLater(ctx, req.VideoID)
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	if !added {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Already in watch later"})
		return
	}

	if video, err := h.catalog.GetVideo(ctx, req.VideoID); err == nil && !video.Downloaded {
		if _, err := h.runner.Download(req.VideoID, false); err != nil {
			h.logger.Warn("watch later download not started", "video", req.VideoID, "err", err)
		}
	}

	h.hub.Broadcast(types.WatchLaterEvent(req.VideoID, true))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RemoveFromWatchLater unlists a video
func (h *VideoHandler) RemoveFromWatchLater(c *gin.Context) {
	var req watchLaterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "videoId is required"})
		return
	}

	removed, err := h.catalog.RemoveFromWatchLater(c.Request.Context(), req.VideoID)
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Not in watch later"})
		return
	}

	h.hub.Broadcast(types.WatchLaterEvent(req.VideoID, false))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CheckWatchLater reports whether a video is listed
func (h *VideoHandler) CheckWatchLater(c *gin.Context) {
	video, err := h.catalog.GetVideo(c.Request.Context(), c.Param("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"inWatchLater": false})
		return
	}
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inWatchLater": video.WatchLater})
}

// StreamMedia serves the downloaded file of a video with range support
func (h *VideoHandler) StreamMedia(c *gin.Context) {
	video, err := h.catalog.GetVideo(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	if !video.Downloaded || video.Location == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "video not downloaded"})
		return
	}

	// Security: the stored location must stay inside the videos directory
	if err := h.media.ValidatePath(video.Location); err != nil {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "path security violation",
			"details": err.Error(),
		})
		return
	}

	c.Header("Content-Type", h.media.ContentType(video.Location))
	c.Header("Accept-Ranges", "bytes")
	c.File(video.Location)
}

func respondCatalogError(c *gin.Context, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
