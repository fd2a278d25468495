package types

// EventType is the discriminant of every push-channel message
type EventType string

const (
	EventState            EventType = "state"
	EventDownloadLogLine  EventType = "download-log-line"
	EventNewVideos        EventType = "new-videos"
	EventDownloaded       EventType = "downloaded"
	EventSummary          EventType = "summary"
	EventSummaryError     EventType = "summary-error"
	EventIgnored          EventType = "ignored"
	EventWatchLaterAdded  EventType = "watch-later-added"
	EventWatchLaterRemove EventType = "watch-later-removed"
)

// Event is a self-describing push-channel message. Only the fields relevant
// to Type are populated; the rest are omitted on the wire.
type Event struct {
	Type       EventType `json:"type"`
	State      *JobState `json:"state,omitempty"`
	Line       string    `json:"line,omitempty"`
	Name       string    `json:"name,omitempty"`
	Videos     []Video   `json:"videos,omitempty"`
	VideoID    string    `json:"videoId,omitempty"`
	Downloaded *bool     `json:"downloaded,omitempty"`
	Video      *Video    `json:"video,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	Transcript string    `json:"transcript,omitempty"`
	Ignored    *bool     `json:"ignored,omitempty"`
}

// StateEvent wraps a job-state snapshot
func StateEvent(state JobState) Event {
	return Event{Type: EventState, State: &state}
}

// LogLineEvent carries one line of job output
func LogLineEvent(line string) Event {
	return Event{Type: EventDownloadLogLine, Line: line}
}

// NewVideosEvent announces newly discovered videos, optionally for a channel
func NewVideosEvent(name string, videos []Video) Event {
	return Event{Type: EventNewVideos, Name: name, Videos: videos}
}

// DownloadedEvent reports a finished download (or a deletion when downloaded is false)
func DownloadedEvent(videoID string, downloaded bool, video *Video) Event {
	return Event{Type: EventDownloaded, VideoID: videoID, Downloaded: &downloaded, Video: video}
}

// SummaryEvent reports a finished summarization
func SummaryEvent(videoID, summary, transcript string) Event {
	return Event{Type: EventSummary, VideoID: videoID, Summary: summary, Transcript: transcript}
}

// SummaryErrorEvent reports a failed summarization
func SummaryErrorEvent(videoID string) Event {
	return Event{Type: EventSummaryError, VideoID: videoID}
}

// IgnoredEvent reports the result of an ignore toggle
func IgnoredEvent(videoID string, ignored bool) Event {
	return Event{Type: EventIgnored, VideoID: videoID, Ignored: &ignored}
}

// WatchLaterEvent reports a watch-later add or removal
func WatchLaterEvent(videoID string, added bool) Event {
	if added {
		return Event{Type: EventWatchLaterAdded, VideoID: videoID}
	}
	return Event{Type: EventWatchLaterRemove, VideoID: videoID}
}
