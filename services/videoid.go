package services

import (
	"errors"
	"regexp"
	"strings"
)

// ErrUnsupportedURL is returned for input that is neither a YouTube watch URL nor a bare video id
var ErrUnsupportedURL = errors.New("unsupported url")

var (
	youtubeURLRegexp = regexp.MustCompile(`^(?:https?://)?(?:www\.)?(?:youtube\.com/watch\?v=|youtu\.be/(?:watch\?v=)?)([\w-]+)`)
	videoIDRegexp    = regexp.MustCompile(`^[\w-]+$`)
)

// ParseVideoID accepts a YouTube URL or a bare id and returns the id
func ParseVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if m := youtubeURLRegexp.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}
	if videoIDRegexp.MatchString(raw) {
		return raw, nil
	}
	return "", ErrUnsupportedURL
}

// WatchURL returns the canonical watch page for id
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// ThumbnailURL returns the medium-quality thumbnail for id
func ThumbnailURL(id string) string {
	return "https://img.youtube.com/vi/" + id + "/mq2.jpg"
}
