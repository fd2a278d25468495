package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tubewatch/services"
)

// SettingsHandler handles download settings endpoints
type SettingsHandler struct {
	settings *services.DownloadSettings
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings *services.DownloadSettings) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// GetSettings returns the current download settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"settings":  h.settings.Get(),
		"qualities": services.SupportedQualities,
	})
}

// UpdateSettings replaces the download settings
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var opts services.DownloadOptions
	if err := c.ShouldBindJSON(&opts); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid settings format",
			"details": err.Error(),
		})
		return
	}

	if err := h.settings.Update(opts); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrInvalidQuality) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"error":   "Failed to save settings",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Settings updated successfully",
		"settings": opts,
	})
}
