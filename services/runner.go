package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"tubewatch/catalog"
	"tubewatch/types"
)

var (
	// ErrQueueFull is returned when the job queue cannot take more work
	ErrQueueFull = errors.New("job queue full")

	// ErrRunnerStopped is returned when work is submitted after shutdown
	ErrRunnerStopped = errors.New("job runner stopped")
)

// Runner interface defines the methods for starting background jobs
type Runner interface {
	Start(ctx context.Context)
	Download(id string, external bool) (bool, error)
	Summarize(id string) (bool, error)
	Wait()
}

// task is one queued unit of work
type task struct {
	kind     types.JobKind
	id       string
	external bool
}

// runner executes download and summarize jobs on a bounded worker pool,
// mirroring every progress line into the job store and the push channel
type runner struct {
	store      JobStore
	hub        Broadcaster
	catalog    Catalog
	fetcher    MediaFetcher
	summarizer SummaryProvider
	logger     *log.Logger

	queue      chan task
	maxWorkers int
	wg         sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// RunnerConfig wires a Runner to its collaborators
type RunnerConfig struct {
	Store      JobStore
	Hub        Broadcaster
	Catalog    Catalog
	Fetcher    MediaFetcher
	Summarizer SummaryProvider
	Logger     *log.Logger
	Workers    int
	QueueSize  int
}

// NewRunner creates a new job runner
func NewRunner(cfg RunnerConfig) Runner {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	size := cfg.QueueSize
	if size < 1 {
		size = 100
	}
	return &runner{
		store:      cfg.Store,
		hub:        cfg.Hub,
		catalog:    cfg.Catalog,
		fetcher:    cfg.Fetcher,
		summarizer: cfg.Summarizer,
		logger:     cfg.Logger,
		queue:      make(chan task, size),
		maxWorkers: workers,
	}
}

// Start launches the workers; they exit when ctx is cancelled
func (r *runner) Start(ctx context.Context) {
	for i := 0; i < r.maxWorkers; i++ {
		r.wg.Add(1)
		go r.worker(ctx)
	}
	go func() {
		<-ctx.Done()
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()
	}()
}

// Wait blocks until every worker has exited
func (r *runner) Wait() {
	r.wg.Wait()
}

// Download queues a download for id. It reports false when a download for
// the same id is already running.
func (r *runner) Download(id string, external bool) (bool, error) {
	return r.submit(task{kind: types.JobKindDownload, id: id, external: external})
}

// Summarize queues a summarization for id. It reports false when one is
// already running.
func (r *runner) Summarize(id string) (bool, error) {
	return r.submit(task{kind: types.JobKindSummarize, id: id})
}

func (r *runner) submit(t task) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return false, ErrRunnerStopped
	}
	if _, created := r.store.Start(t.kind, t.id); !created {
		return false, nil
	}

	select {
	case r.queue <- t:
		return true, nil
	default:
		r.store.Complete(t.kind, t.id)
		return false, ErrQueueFull
	}
}

// worker processes tasks from the queue
func (r *runner) worker(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			r.drain()
			return
		case t := <-r.queue:
			r.process(ctx, t)
		}
	}
}

// drain releases jobs that were queued but never started
func (r *runner) drain() {
	for {
		select {
		case t := <-r.queue:
			r.store.Complete(t.kind, t.id)
		default:
			return
		}
	}
}

// process runs one task; the job entry is removed on every exit path
func (r *runner) process(ctx context.Context, t task) {
	defer r.store.Complete(t.kind, t.id)

	logger := r.logger.With("job", t.kind, "video", t.id)
	logger.Info("job started")

	var err error
	switch t.kind {
	case types.JobKindDownload:
		err = r.download(ctx, t)
	case types.JobKindSummarize:
		err = r.summarize(ctx, t)
	}

	if err != nil {
		logger.Error("job failed", "err", err)
		return
	}
	logger.Info("job completed")
}

// lineSink records a line on the job and forwards it to subscribers
func (r *runner) lineSink(kind types.JobKind, id string) LineFunc {
	return func(line string) {
		r.store.AppendLine(kind, id, line)
		r.hub.Broadcast(types.LogLineEvent(line))
	}
}

func (r *runner) download(ctx context.Context, t task) error {
	if err := r.ensureVideo(ctx, t.id); err != nil {
		r.hub.Broadcast(types.LogLineEvent(err.Error()))
		return err
	}

	sink := r.lineSink(types.JobKindDownload, t.id)
	announced := !t.external
	onLine := func(line string) {
		// a video downloaded by URL is not in any channel list yet
		if !announced {
			announced = true
			if video, err := r.catalog.GetVideo(ctx, t.id); err == nil {
				r.hub.Broadcast(types.NewVideosEvent("", []types.Video{*video}))
			}
		}
		sink(line)
	}

	result, err := r.fetcher.Fetch(ctx, t.id, onLine)
	if err != nil {
		r.hub.Broadcast(types.LogLineEvent(err.Error()))
		return fmt.Errorf("fetch %s: %w", t.id, err)
	}

	downloaded := true
	patch := catalog.VideoPatch{Downloaded: &downloaded, Location: &result.Location, Format: &result.Format}
	if current, err := r.catalog.GetVideo(ctx, t.id); err == nil && current.Title == "" && result.Title != "" {
		patch.Title = &result.Title
	}
	video, err := r.catalog.UpdateVideo(ctx, t.id, patch)
	if err != nil {
		r.hub.Broadcast(types.LogLineEvent(err.Error()))
		return fmt.Errorf("record download %s: %w", t.id, err)
	}

	r.hub.Broadcast(types.DownloadedEvent(t.id, true, video))
	return nil
}

// ensureVideo adds an unknown video to the catalog from its probed metadata
func (r *runner) ensureVideo(ctx context.Context, id string) error {
	_, err := r.catalog.GetVideo(ctx, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		return fmt.Errorf("lookup %s: %w", id, err)
	}

	video, err := r.fetcher.Probe(ctx, id)
	if err != nil {
		return fmt.Errorf("probe %s: %w", id, err)
	}
	if _, err := r.catalog.UpsertVideos(ctx, []types.Video{*video}); err != nil {
		return fmt.Errorf("store %s: %w", id, err)
	}
	return nil
}

func (r *runner) summarize(ctx context.Context, t task) error {
	result, err := r.summarizer.Summarize(ctx, t.id, r.lineSink(types.JobKindSummarize, t.id))
	if err == nil {
		_, err = r.catalog.UpdateVideo(ctx, t.id, catalog.VideoPatch{
			Summary:    &result.Summary,
			Transcript: &result.Transcript,
		})
	}
	if err != nil {
		r.hub.Broadcast(types.LogLineEvent(err.Error()))
		r.hub.Broadcast(types.SummaryErrorEvent(t.id))
		return fmt.Errorf("summarize %s: %w", t.id, err)
	}

	r.hub.Broadcast(types.SummaryEvent(t.id, result.Summary, result.Transcript))
	return nil
}
