package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"tubewatch/catalog"
	"tubewatch/types"
)

// fakeHub records broadcast events
type fakeHub struct {
	mu     sync.Mutex
	events []types.Event
}

func (h *fakeHub) Broadcast(event types.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *fakeHub) all() []types.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]types.Event, len(h.events))
	copy(out, h.events)
	return out
}

func (h *fakeHub) ofType(t types.EventType) []types.Event {
	var out []types.Event
	for _, e := range h.all() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// fakeCatalog is an in-memory Catalog
type fakeCatalog struct {
	mu         sync.Mutex
	videos     map[string]types.Video
	channels   []types.Channel
	watchLater map[string]bool
}

func newFakeCatalog(videos ...types.Video) *fakeCatalog {
	c := &fakeCatalog{videos: map[string]types.Video{}, watchLater: map[string]bool{}}
	for _, v := range videos {
		c.videos[v.ID] = v
	}
	return c
}

func (c *fakeCatalog) GetVideo(ctx context.Context, id string) (*types.Video, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.videos[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	v.WatchLater = c.watchLater[id]
	return &v, nil
}

func (c *fakeCatalog) UpsertVideos(ctx context.Context, videos []types.Video) ([]types.Video, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var added []types.Video
	for _, v := range videos {
		if _, ok := c.videos[v.ID]; ok {
			continue
		}
		v.AddedAt = time.Now().UnixMilli()
		c.videos[v.ID] = v
		added = append(added, v)
	}
	return added, nil
}

func (c *fakeCatalog) UpdateVideo(ctx context.Context, id string, patch catalog.VideoPatch) (*types.Video, error) {
	c.mu.Lock()
	v, ok := c.videos[id]
	if !ok {
		c.mu.Unlock()
		return nil, catalog.ErrNotFound
	}
	if patch.Title != nil {
		v.Title = *patch.Title
	}
	if patch.Downloaded != nil {
		v.Downloaded = *patch.Downloaded
	}
	if patch.Location != nil {
		v.Location = *patch.Location
	}
	if patch.Format != nil {
		v.Format = *patch.Format
	}
	if patch.Summary != nil {
		v.Summary = *patch.Summary
	}
	if patch.Transcript != nil {
		v.Transcript = *patch.Transcript
	}
	c.videos[id] = v
	c.mu.Unlock()
	return c.GetVideo(ctx, id)
}

func (c *fakeCatalog) ToggleIgnored(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.videos[id]
	if !ok {
		return false, catalog.ErrNotFound
	}
	v.Ignored = !v.Ignored
	c.videos[id] = v
	return v.Ignored, nil
}

func (c *fakeCatalog) AddToWatchLater(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.videos[id]; !ok {
		return false, catalog.ErrNotFound
	}
	if c.watchLater[id] {
		return false, nil
	}
	c.watchLater[id] = true
	return true, nil
}

func (c *fakeCatalog) RemoveFromWatchLater(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.watchLater[id] {
		return false, nil
	}
	delete(c.watchLater, id)
	return true, nil
}

func (c *fakeCatalog) ListVideos(ctx context.Context, query string) ([]types.Video, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []types.Video
	for _, v := range c.videos {
		if query == "" || strings.Contains(strings.ToLower(v.Title), strings.ToLower(query)) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (c *fakeCatalog) AddChannel(ctx context.Context, name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.channels {
		if ch.Name == name {
			return false, nil
		}
	}
	c.channels = append(c.channels, types.Channel{Name: name, AddedAt: time.Now()})
	return true, nil
}

func (c *fakeCatalog) RemoveChannel(ctx context.Context, name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, ch := range c.channels {
		if ch.Name == name {
			c.channels = append(c.channels[:i], c.channels[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (c *fakeCatalog) ListChannels(ctx context.Context) ([]types.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.Channel(nil), c.channels...), nil
}

// fakeFetcher emits scripted lines; when gate is set it blocks until the gate closes
type fakeFetcher struct {
	lines  []string
	result FetchResult
	err    error
	probe  *types.Video
	gate   chan struct{}
}

func (f *fakeFetcher) Probe(ctx context.Context, id string) (*types.Video, error) {
	if f.probe == nil {
		return nil, catalog.ErrNotFound
	}
	v := *f.probe
	return &v, nil
}

func (f *fakeFetcher) Fetch(ctx context.Context, id string, onLine LineFunc) (FetchResult, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return FetchResult{}, ctx.Err()
		}
	}
	for _, line := range f.lines {
		onLine(line)
	}
	return f.result, f.err
}

type fakeSummarizer struct {
	summary Summary
	err     error
}

func (s *fakeSummarizer) Summarize(ctx context.Context, id string, onLine LineFunc) (Summary, error) {
	onLine("fetching subtitles")
	return s.summary, s.err
}
