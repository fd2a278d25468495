package services

import (
	"context"

	"tubewatch/catalog"
	"tubewatch/types"
)

// LineFunc receives one line of tool output as it is produced
type LineFunc func(line string)

// FetchResult describes a finished download
type FetchResult struct {
	Location string // path of the media file
	Format   string // container extension, e.g. "mp4"
	Title    string // title read from the file's tags, if any
}

// MediaFetcher downloads (and optionally transcodes) a video, reporting tool
// output line by line
type MediaFetcher interface {
	Probe(ctx context.Context, id string) (*types.Video, error)
	Fetch(ctx context.Context, id string, onLine LineFunc) (FetchResult, error)
}

// Summary is the outcome of a summarization job
type Summary struct {
	Summary    string
	Transcript string
}

// SummaryProvider produces a transcript summary for a video
type SummaryProvider interface {
	Summarize(ctx context.Context, id string, onLine LineFunc) (Summary, error)
}

// ChannelLister lists the recent uploads of a channel
type ChannelLister interface {
	ChannelVideos(ctx context.Context, channel string) ([]types.Video, error)
}

// Catalog persists videos, channels and the watch-later list
type Catalog interface {
	GetVideo(ctx context.Context, id string) (*types.Video, error)
	UpsertVideos(ctx context.Context, videos []types.Video) ([]types.Video, error)
	UpdateVideo(ctx context.Context, id string, patch catalog.VideoPatch) (*types.Video, error)
	ToggleIgnored(ctx context.Context, id string) (bool, error)
	AddToWatchLater(ctx context.Context, id string) (bool, error)
	RemoveFromWatchLater(ctx context.Context, id string) (bool, error)
	ListVideos(ctx context.Context, query string) ([]types.Video, error)
	AddChannel(ctx context.Context, name string) (bool, error)
	RemoveChannel(ctx context.Context, name string) (bool, error)
	ListChannels(ctx context.Context) ([]types.Channel, error)
}

// Broadcaster fans events out to every subscriber of the push channel
type Broadcaster interface {
	Broadcast(event types.Event)
}
