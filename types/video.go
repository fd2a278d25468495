package types

import "time"

// Video is the catalog record for one video, and the client-side entity snapshot
type Video struct {
	ID            string     `json:"id"`
	ChannelName   string     `json:"channelName"`
	Title         string     `json:"title"`
	URL           string     `json:"url,omitempty"`
	Thumbnail     string     `json:"thumbnail"`
	Description   string     `json:"description,omitempty"`
	PublishedTime string     `json:"publishedTime,omitempty"`
	PublishedAt   *time.Time `json:"publishedAt,omitempty"`
	ViewCount     string     `json:"viewCount,omitempty"`
	Duration      string     `json:"duration,omitempty"`
	Downloaded    bool       `json:"downloaded"`
	WatchLater    bool       `json:"watchLater"`
	Ignored       bool       `json:"ignored"`
	Summary       string     `json:"summary,omitempty"`
	Transcript    string     `json:"transcript,omitempty"`
	Location      string     `json:"location,omitempty"` // path of the downloaded file
	Format        string     `json:"format,omitempty"`   // "mp4", "webm"
	AddedAt       int64      `json:"addedAt,omitempty"`  // unix millis
}

// SourceFormat returns the container format used to build playback URLs
func (v Video) SourceFormat() string {
	if v.Format == "" {
		return "mp4"
	}
	return v.Format
}

// Channel represents a followed channel
type Channel struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName,omitempty"`
	AddedAt     time.Time `json:"addedAt"`
}
