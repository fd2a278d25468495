package client

import (
	"sync"

	"github.com/charmbracelet/log"

	"tubewatch/types"
)

// ListSink receives newly discovered videos for the visible list
type ListSink interface {
	Prepend(channel string, videos []types.Video)
}

// JobListener is a one-shot callback fired by the next downloaded event of a video
type JobListener func(ev types.Event)

// RouterConfig carries the router's collaborators. Progress and List may be nil.
type RouterConfig struct {
	Registry   *Registry
	Reconciler *Reconciler
	Progress   *ProgressIndicator
	List       ListSink
	Logger     *log.Logger
}

// Router dispatches push-channel events to the job-state mirror, the
// progress indicator, the visible list and every bound entity
type Router struct {
	mu        sync.Mutex
	state     types.JobState
	listeners map[string]JobListener

	registry   *Registry
	reconciler *Reconciler
	progress   *ProgressIndicator
	list       ListSink
	logger     *log.Logger
}

// NewRouter creates a router with an empty job-state mirror
func NewRouter(cfg RouterConfig) *Router {
	if cfg.Reconciler == nil {
		cfg.Reconciler = NewReconciler(cfg.Logger)
	}
	return &Router{
		state:      types.NewJobState(),
		listeners:  make(map[string]JobListener),
		registry:   cfg.Registry,
		reconciler: cfg.Reconciler,
		progress:   cfg.Progress,
		list:       cfg.List,
		logger:     cfg.Logger,
	}
}

// State returns the mirrored job state
func (r *Router) State() types.JobState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// OnJobDone registers a one-shot listener for the next downloaded event of
// videoID, replacing any earlier one
func (r *Router) OnJobDone(videoID string, fn JobListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[videoID] = fn
}

// ClearJobListener drops the listener registered for videoID
func (r *Router) ClearJobListener(videoID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.listeners, videoID)
}

// ClearJobListeners drops every listener, called when leaving a view
func (r *Router) ClearJobListeners() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.listeners)
}

// Dispatch handles one raw payload. Malformed or unknown events are logged
// and dropped; Dispatch never panics.
func (r *Router) Dispatch(raw []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("event handler panicked", "panic", rec)
		}
	}()

	ev, err := ParseEvent(raw)
	if err != nil {
		r.logger.Warn("dropping event", "err", err)
		return
	}
	r.Handle(ev)
}

// Handle applies a decoded event
func (r *Router) Handle(ev types.Event) {
	switch ev.Type {
	case types.EventState:
		r.handleState(*ev.State)

	case types.EventDownloadLogLine:
		if ev.Line != "" && r.progress != nil {
			r.progress.Push(ev.Line)
		}

	case types.EventNewVideos:
		if len(ev.Videos) > 0 && r.list != nil {
			r.list.Prepend(ev.Name, ev.Videos)
		}

	case types.EventDownloaded:
		r.handleDownloaded(ev)

	case types.EventSummary:
		r.patch(ev.VideoID, func(v *types.Video) {
			v.Summary = ev.Summary
			v.Transcript = ev.Transcript
		})

	case types.EventSummaryError:
		for _, e := range r.registry.Lookup(ev.VideoID) {
			st := e.Status()
			st.Summarizing = false
			e.SetStatus(st)
			r.reconciler.Rerender(e)
		}

	case types.EventIgnored:
		ignored := *ev.Ignored
		r.patch(ev.VideoID, func(v *types.Video) { v.Ignored = ignored })

	case types.EventWatchLaterAdded:
		r.patch(ev.VideoID, func(v *types.Video) { v.WatchLater = true })

	case types.EventWatchLaterRemove:
		r.patch(ev.VideoID, func(v *types.Video) { v.WatchLater = false })
	}
}

func (r *Router) handleState(state types.JobState) {
	if state.Downloading == nil {
		state.Downloading = map[string]types.JobLog{}
	}
	if state.Summarizing == nil {
		state.Summarizing = map[string]types.JobLog{}
	}

	r.mu.Lock()
	r.state = state
	r.mu.Unlock()

	for _, e := range r.registry.All() {
		id := e.ID()
		e.SetStatus(Status{
			Downloading: state.Active(types.JobKindDownload, id),
			Summarizing: state.Active(types.JobKindSummarize, id),
		})
	}
}

func (r *Router) handleDownloaded(ev types.Event) {
	downloaded := *ev.Downloaded
	if downloaded && r.progress != nil {
		r.progress.Reset()
	}

	r.mu.Lock()
	fn, ok := r.listeners[ev.VideoID]
	delete(r.listeners, ev.VideoID)
	r.mu.Unlock()
	if ok && fn != nil {
		fn(ev)
	}

	r.patch(ev.VideoID, func(v *types.Video) {
		if ev.Video != nil {
			*v = *ev.Video
		}
		v.Downloaded = downloaded
	})
}

// patch applies fn to a copy of every bound snapshot of id and reconciles
func (r *Router) patch(id string, fn func(v *types.Video)) {
	for _, e := range r.registry.Lookup(id) {
		next := e.Video()
		fn(&next)
		next.ID = id
		decision := r.reconciler.Apply(e, next)
		r.logger.Debug("applied event", "video", id, "decision", decision)
	}
}
