package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubewatch/logging"
	"tubewatch/types"
)

type runnerFixture struct {
	runner  Runner
	store   JobStore
	hub     *fakeHub
	catalog *fakeCatalog
}

func newRunnerFixture(t *testing.T, fetcher MediaFetcher, summarizer SummaryProvider, videos ...types.Video) *runnerFixture {
	t.Helper()
	store := NewJobStore()
	hub := &fakeHub{}
	store.OnChange(func(state types.JobState) { hub.Broadcast(types.StateEvent(state)) })
	cat := newFakeCatalog(videos...)

	r := NewRunner(RunnerConfig{
		Store:      store,
		Hub:        hub,
		Catalog:    cat,
		Fetcher:    fetcher,
		Summarizer: summarizer,
		Logger:     logging.Discard(),
		Workers:    2,
		QueueSize:  4,
	})
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	t.Cleanup(func() {
		cancel()
		r.Wait()
	})
	return &runnerFixture{runner: r, store: store, hub: hub, catalog: cat}
}

func (f *runnerFixture) idle() bool {
	return f.store.Snapshot().Count() == 0
}

func TestDownloadBroadcastsLinesThenDownloaded(t *testing.T) {
	fetcher := &fakeFetcher{
		lines:  []string{"[download] 10.0%", "[download] 50.0%", "[download] 100%"},
		result: FetchResult{Location: "data/videos/abc123.mp4", Format: "mp4"},
	}
	f := newRunnerFixture(t, fetcher, nil, types.Video{ID: "abc123", Title: "Video"})

	started, err := f.runner.Download("abc123", false)
	require.NoError(t, err)
	assert.True(t, started)

	require.Eventually(t, func() bool {
		return f.idle() && len(f.hub.ofType(types.EventDownloaded)) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Len(t, f.hub.ofType(types.EventState), 4, "three lines and the completion")
	assert.Len(t, f.hub.ofType(types.EventDownloadLogLine), 3)
	assert.Empty(t, f.hub.ofType(types.EventNewVideos))

	done := f.hub.ofType(types.EventDownloaded)[0]
	assert.Equal(t, "abc123", done.VideoID)
	require.NotNil(t, done.Downloaded)
	assert.True(t, *done.Downloaded)
	require.NotNil(t, done.Video)
	assert.Equal(t, "data/videos/abc123.mp4", done.Video.Location)

	events := f.hub.all()
	last := events[len(events)-1]
	assert.Equal(t, types.EventState, last.Type, "the job entry is removed after the outcome is announced")
	assert.Equal(t, 0, last.State.Count())
}

func TestExternalDownloadAnnouncesVideoOnce(t *testing.T) {
	fetcher := &fakeFetcher{
		lines:  []string{"one", "two"},
		result: FetchResult{Location: "x.mp4", Format: "mp4"},
		probe:  &types.Video{ID: "newvid", Title: "Probed"},
	}
	f := newRunnerFixture(t, fetcher, nil)

	_, err := f.runner.Download("newvid", true)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(f.hub.ofType(types.EventDownloaded)) == 1
	}, time.Second, 5*time.Millisecond)

	announced := f.hub.ofType(types.EventNewVideos)
	require.Len(t, announced, 1)
	assert.Equal(t, "Probed", announced[0].Videos[0].Title)

	video, err := f.catalog.GetVideo(context.Background(), "newvid")
	require.NoError(t, err)
	assert.True(t, video.Downloaded)
}

func TestDuplicateDownloadIsRejectedWhileRunning(t *testing.T) {
	gate := make(chan struct{})
	fetcher := &fakeFetcher{gate: gate, result: FetchResult{Location: "x.mp4", Format: "mp4"}}
	f := newRunnerFixture(t, fetcher, nil, types.Video{ID: "abc123"})

	started, err := f.runner.Download("abc123", false)
	require.NoError(t, err)
	require.True(t, started)

	started, err = f.runner.Download("abc123", false)
	require.NoError(t, err)
	assert.False(t, started)

	close(gate)
	require.Eventually(t, f.idle, time.Second, 5*time.Millisecond)

	started, err = f.runner.Download("abc123", false)
	require.NoError(t, err)
	assert.True(t, started, "a finished job may be started again")
}

func TestDownloadFailureCompletesJob(t *testing.T) {
	fetcher := &fakeFetcher{lines: []string{"[download] 5%"}, err: errors.New("ERROR: video unavailable")}
	f := newRunnerFixture(t, fetcher, nil, types.Video{ID: "abc123"})

	_, err := f.runner.Download("abc123", false)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.idle() && len(f.hub.ofType(types.EventState)) == 2
	}, time.Second, 5*time.Millisecond)

	assert.Empty(t, f.hub.ofType(types.EventDownloaded))
	lines := f.hub.ofType(types.EventDownloadLogLine)
	require.Len(t, lines, 2)
	assert.Equal(t, "ERROR: video unavailable", lines[1].Line)

	video, err := f.catalog.GetVideo(context.Background(), "abc123")
	require.NoError(t, err)
	assert.False(t, video.Downloaded)
}

func TestSummarize(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		summarizer := &fakeSummarizer{summary: Summary{Summary: "short", Transcript: "long"}}
		f := newRunnerFixture(t, nil, summarizer, types.Video{ID: "abc123"})

		_, err := f.runner.Summarize("abc123")
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return f.idle() && len(f.hub.ofType(types.EventSummary)) == 1
		}, time.Second, 5*time.Millisecond)

		event := f.hub.ofType(types.EventSummary)[0]
		assert.Equal(t, "short", event.Summary)
		assert.Equal(t, "long", event.Transcript)

		video, err := f.catalog.GetVideo(context.Background(), "abc123")
		require.NoError(t, err)
		assert.Equal(t, "short", video.Summary)
	})

	t.Run("failure", func(t *testing.T) {
		summarizer := &fakeSummarizer{err: errors.New("llm unreachable")}
		f := newRunnerFixture(t, nil, summarizer, types.Video{ID: "abc123"})

		_, err := f.runner.Summarize("abc123")
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return f.idle() && len(f.hub.ofType(types.EventSummaryError)) == 1
		}, time.Second, 5*time.Millisecond)

		assert.Empty(t, f.hub.ofType(types.EventSummary))
		lines := f.hub.ofType(types.EventDownloadLogLine)
		require.NotEmpty(t, lines)
		assert.Equal(t, "llm unreachable", lines[len(lines)-1].Line)
	})
}

func TestQueueFullReleasesJob(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	fetcher := &fakeFetcher{gate: gate}
	store := NewJobStore()
	r := NewRunner(RunnerConfig{
		Store:     store,
		Hub:       &fakeHub{},
		Catalog:   newFakeCatalog(types.Video{ID: "a"}, types.Video{ID: "b"}),
		Fetcher:   fetcher,
		Logger:    logging.Discard(),
		Workers:   1,
		QueueSize: 1,
	})
	// workers not started: the queue holds exactly one task

	started, err := r.Download("a", false)
	require.NoError(t, err)
	assert.True(t, started)

	_, err = r.Download("b", false)
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.False(t, store.Snapshot().Active(types.JobKindDownload, "b"))
}

func TestParseVideoID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"abc123", "abc123", false},
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://youtube.com/watch?v=dQw4w9WgXcQ&t=42", "dQw4w9WgXcQ", false},
		{"youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://youtu.be/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://vimeo.com/12345", "", true},
		{"not an id", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVideoID(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
