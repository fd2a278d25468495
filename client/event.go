// Package client is a headless consumer of the tubewatch push channel. It
// mirrors the server's job state, keeps bound media entities in sync with
// pushed events without disrupting playback, and carries a playing video
// across navigation in a picture-in-picture overlay.
package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"tubewatch/types"
)

var (
	// ErrMalformedEvent is returned for payloads that are not a JSON event object
	ErrMalformedEvent = errors.New("malformed event")

	// ErrUnknownEvent is returned for events whose type is not recognized
	ErrUnknownEvent = errors.New("unknown event type")
)

// ParseEvent decodes one push-channel payload and checks that its type is
// known and that the fields that type requires are present
func ParseEvent(raw []byte) (types.Event, error) {
	var ev types.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return types.Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch ev.Type {
	case types.EventState:
		if ev.State == nil {
			return ev, fmt.Errorf("%w: state event without state", ErrMalformedEvent)
		}
	case types.EventDownloadLogLine, types.EventNewVideos:
	case types.EventDownloaded:
		if ev.VideoID == "" || ev.Downloaded == nil {
			return ev, fmt.Errorf("%w: downloaded event needs videoId and downloaded", ErrMalformedEvent)
		}
	case types.EventIgnored:
		if ev.VideoID == "" || ev.Ignored == nil {
			return ev, fmt.Errorf("%w: ignored event needs videoId and ignored", ErrMalformedEvent)
		}
	case types.EventSummary, types.EventSummaryError,
		types.EventWatchLaterAdded, types.EventWatchLaterRemove:
		if ev.VideoID == "" {
			return ev, fmt.Errorf("%w: %s event without videoId", ErrMalformedEvent, ev.Type)
		}
	case "":
		return ev, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	default:
		return ev, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	return ev, nil
}
