package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tubewatch/services"
)

// JobHandler handles endpoints that start background jobs
type JobHandler struct {
	runner services.Runner
	store  services.JobStore
}

// NewJobHandler creates a new job handler
func NewJobHandler(runner services.Runner, store services.JobStore) *JobHandler {
	return &JobHandler{
		runner: runner,
		store:  store,
	}
}

type downloadRequest struct {
	ID       string `json:"id" binding:"required"`
	External bool   `json:"external"`
}

type videoRequest struct {
	ID string `json:"id" binding:"required"`
}

// DownloadVideo starts a download for a video id or YouTube URL
func (h *JobHandler) DownloadVideo(c *gin.Context) {
	var req downloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video id is required"})
		return
	}

	id, err := services.ParseVideoID(req.ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	started, err := h.runner.Download(id, req.External)
	if err != nil {
		respondQueueError(c, err)
		return
	}

	message := "Download started"
	if !started {
		message = "Download already running"
	}
	c.JSON(http.StatusAccepted, gin.H{
		"message": message,
		"id":      id,
		"started": started,
	})
}

// SummarizeVideo starts a summarization for a video
func (h *JobHandler) SummarizeVideo(c *gin.Context) {
	var req videoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video id is required"})
		return
	}

	id, err := services.ParseVideoID(req.ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	started, err := h.runner.Summarize(id)
	if err != nil {
		respondQueueError(c, err)
		return
	}

	message := "Summary started"
	if !started {
		message = "Summary already running"
	}
	c.JSON(http.StatusAccepted, gin.H{
		"message": message,
		"id":      id,
		"started": started,
	})
}

// GetState returns the snapshot of every active job
func (h *JobHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot())
}

func respondQueueError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrQueueFull), errors.Is(err, services.ErrRunnerStopped):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
