package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// ErrInvalidQuality is returned for a quality outside SupportedQualities
var ErrInvalidQuality = errors.New("unsupported video quality")

// SupportedQualities are the accepted max heights, "best" meaning no limit
var SupportedQualities = []string{"best", "2160", "1440", "1080", "720", "480", "360"}

// DownloadOptions are the user-adjustable download settings
type DownloadOptions struct {
	Quality   string `json:"quality"`
	Transcode bool   `json:"transcode"`
}

// DownloadSettings holds the current download options, persisted as JSON
type DownloadSettings struct {
	mu   sync.RWMutex
	opts DownloadOptions
	path string
}

// NewDownloadSettings starts from defaults and overlays the settings file at path, if any
func NewDownloadSettings(path string, defaults DownloadOptions) (*DownloadSettings, error) {
	s := &DownloadSettings{opts: defaults, path: path}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var saved DownloadOptions
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if saved.Quality != "" {
		s.opts.Quality = saved.Quality
	}
	s.opts.Transcode = saved.Transcode
	return s, nil
}

// Get returns the current options
func (s *DownloadSettings) Get() DownloadOptions {
	if s == nil {
		return DownloadOptions{Quality: "best"}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// Update validates, applies and saves opts
func (s *DownloadSettings) Update(opts DownloadOptions) error {
	if !slices.Contains(SupportedQualities, opts.Quality) {
		return fmt.Errorf("%w: %q", ErrInvalidQuality, opts.Quality)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != "" {
		data, err := json.MarshalIndent(opts, "", "  ")
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
		if err := os.WriteFile(s.path, data, 0o644); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
	}
	s.opts = opts
	return nil
}
