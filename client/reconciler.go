package client

import (
	"github.com/charmbracelet/log"

	"tubewatch/types"
)

// Decision is the outcome of applying a snapshot to an entity
type Decision int

const (
	// Skipped means the snapshot was stored without touching the view
	Skipped Decision = iota
	// Rerendered means the view was rebuilt from the snapshot
	Rerendered
)

func (d Decision) String() string {
	if d == Skipped {
		return "skipped"
	}
	return "rerendered"
}

// CriticalEqual reports whether two snapshots agree on every field that
// changes what a player shows: id, downloaded, title and thumbnail
func CriticalEqual(a, b types.Video) bool {
	return a.ID == b.ID &&
		a.Downloaded == b.Downloaded &&
		a.Title == b.Title &&
		a.Thumbnail == b.Thumbnail
}

// Reconciler decides whether a new snapshot needs a full re-render and, when
// it does, rebuilds the entity without losing playback
type Reconciler struct {
	logger *log.Logger
}

// NewReconciler creates a reconciler
func NewReconciler(logger *log.Logger) *Reconciler {
	return &Reconciler{logger: logger}
}

// Apply installs next on e. A playing entity whose critical fields are
// unchanged keeps its view; anything else is re-rendered.
func (r *Reconciler) Apply(e *Entity, next types.Video) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	if IsPlaying(e.player) && CriticalEqual(e.video, next) {
		e.video = next
		return Skipped
	}
	r.rerenderLocked(e, next)
	return Rerendered
}

// Rerender forces a full re-render from the current snapshot
func (r *Reconciler) Rerender(e *Entity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r.rerenderLocked(e, e.video)
}

// rerenderLocked rebuilds the view. A playing player is captured, rebuilt
// and resumed; a paused or ended one is dropped back to the placeholder.
func (r *Reconciler) rerenderLocked(e *Entity, next types.Video) {
	var captured *PlaybackState
	if IsPlaying(e.player) {
		st := Capture(e.player)
		captured = &st
	}
	e.teardownLocked()
	e.video = next

	if captured != nil {
		_, err := e.activateLocked(captured)
		if err == nil {
			return
		}
		r.logger.Warn("could not resume playback after re-render", "video", next.ID, "err", err)
		e.teardownLocked()
	}
	e.view.Render(next, e.status, nil)
}
