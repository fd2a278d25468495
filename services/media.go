package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dhowden/tag"
)

// MediaFiles interface defines methods for locating and describing downloaded media
type MediaFiles interface {
	Find(id string) (string, error)
	Remove(id string) ([]string, error)
	ReadTitle(path string) string
	ValidatePath(path string) error
	ContentType(path string) string
}

// mediaFiles implements MediaFiles over the videos directory
type mediaFiles struct {
	root   string
	logger *log.Logger
}

// NewMediaFiles creates a media file service rooted at dir
func NewMediaFiles(dir string, logger *log.Logger) MediaFiles {
	return &mediaFiles{root: dir, logger: logger}
}

var mediaExtensions = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".m4a":  "audio/mp4",
	".mp3":  "audio/mpeg",
}

// Find returns the media file downloaded for id, skipping subtitles and partial files
func (m *mediaFiles) Find(id string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(m.root, id+".*"))
	if err != nil {
		return "", fmt.Errorf("search media for %s: %w", id, err)
	}
	for _, path := range matches {
		if _, ok := mediaExtensions[strings.ToLower(filepath.Ext(path))]; ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("no media file for %s", id)
}

// Remove deletes every file stored for id (media, subtitles, partials) and
// returns the names removed
func (m *mediaFiles) Remove(id string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(m.root, id+".*"))
	if err != nil {
		return nil, fmt.Errorf("search files for %s: %w", id, err)
	}
	var removed []string
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("delete %s: %w", filepath.Base(path), err)
		}
		removed = append(removed, filepath.Base(path))
	}
	return removed, nil
}

// ReadTitle returns the title tag of a media file, or "" when it has none
func (m *mediaFiles) ReadTitle(path string) string {
	file, err := os.Open(path)
	if err != nil {
		m.logger.Warn("could not open media file", "path", path, "err", err)
		return ""
	}
	defer file.Close()

	meta, err := tag.ReadFrom(file)
	if err != nil {
		m.logger.Debug("no readable tags", "path", path, "err", err)
		return ""
	}
	return strings.TrimSpace(meta.Title())
}

// ValidatePath checks that path resolves inside the videos directory
func (m *mediaFiles) ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty path not allowed")
	}

	root, err := filepath.Abs(m.root)
	if err != nil {
		return fmt.Errorf("resolve media root: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path traversal not allowed")
	}
	return nil
}

// ContentType returns the MIME type for a media file
func (m *mediaFiles) ContentType(path string) string {
	if ct, ok := mediaExtensions[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "application/octet-stream"
}
