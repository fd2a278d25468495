package client

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"tubewatch/types"
)

const (
	// DefaultSaveInterval is how often a playing entity persists its position
	DefaultSaveInterval = 5 * time.Second

	// ResumeThreshold is the minimum saved position worth resuming from
	ResumeThreshold = 10 * time.Second
)

// ErrNotDownloaded is returned when activating an entity with no local media
var ErrNotDownloaded = errors.New("video is not downloaded")

// Status is the job activity shown on an entity
type Status struct {
	Downloading bool
	Summarizing bool
}

// View renders one entity. Render receives the active player, or nil when the
// entity shows its placeholder.
type View interface {
	Render(v types.Video, status Status, p Player)
	SetStatus(status Status)
}

// EntityConfig carries the collaborators shared by entities
type EntityConfig struct {
	Players      PlayerFactory
	Source       SourceFunc
	Preferences  Preferences
	SaveInterval time.Duration
}

// Entity is one on-screen representation of a video, bound to its snapshot
// and, while watched, to a live player
type Entity struct {
	mu       sync.Mutex
	video    types.Video
	status   Status
	theatre  bool
	view     View
	cfg      EntityConfig
	player   Player
	stopSave chan struct{}
}

// NewEntity creates an entity and renders its placeholder
func NewEntity(v types.Video, view View, cfg EntityConfig) *Entity {
	if cfg.Preferences == nil {
		cfg.Preferences = NewMemoryPreferences()
	}
	if cfg.SaveInterval <= 0 {
		cfg.SaveInterval = DefaultSaveInterval
	}
	if cfg.Source == nil {
		cfg.Source = func(v types.Video) string { return v.Location }
	}
	e := &Entity{video: v, view: view, cfg: cfg}
	view.Render(v, e.status, nil)
	return e
}

// ID returns the bound video id
func (e *Entity) ID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.video.ID
}

// Video returns the current snapshot
func (e *Entity) Video() types.Video {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.video
}

// Status returns the current job activity
func (e *Entity) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Player returns the active player, nil when showing the placeholder
func (e *Entity) Player() Player {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.player
}

// Playing reports whether the entity has an active player that is playing
func (e *Entity) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return IsPlaying(e.player)
}

// Theatre reports whether the entity is shown enlarged on the main route
func (e *Entity) Theatre() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.theatre
}

// SetTheatre toggles the enlarged presentation
func (e *Entity) SetTheatre(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.theatre = on
}

// SetStatus updates the job activity in place, without a re-render
func (e *Entity) SetStatus(status Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == status {
		return
	}
	e.status = status
	e.view.SetStatus(status)
}

// Activate mounts a player for the snapshot and starts playback. An already
// active player is returned as is.
func (e *Entity) Activate() (Player, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.player != nil {
		return e.player, nil
	}
	return e.activateLocked(nil)
}

// Deactivate tears down the player and shows the placeholder again
func (e *Entity) Deactivate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.player == nil {
		return
	}
	e.teardownLocked()
	e.view.Render(e.video, e.status, nil)
}

// activateLocked builds a player. With restore set the captured state is
// reapplied, otherwise the saved position and rate preference are used.
func (e *Entity) activateLocked(restore *PlaybackState) (Player, error) {
	if !e.video.Downloaded {
		return nil, ErrNotDownloaded
	}

	p, err := e.cfg.Players.NewPlayer(e.cfg.Source(e.video), SurfaceInline)
	if err != nil {
		return nil, fmt.Errorf("create player for %s: %w", e.video.ID, err)
	}

	id := e.video.ID
	prefs := e.cfg.Preferences
	p.OnEvent(func(kind PlayerEventKind) {
		switch kind {
		case PlayerPaused:
			prefs.SavePosition(id, p.Position())
		case PlayerEnded:
			prefs.ClearPosition(id)
		case PlayerRateChanged:
			prefs.SetRate(p.Rate())
		}
	})

	e.player = p
	e.view.Render(e.video, e.status, p)

	if restore != nil {
		err = Restore(p, *restore)
	} else {
		p.SetRate(prefs.Rate())
		if pos, ok := prefs.Position(id); ok && pos > ResumeThreshold {
			p.Seek(pos)
		}
		err = p.Play()
	}
	e.startSavingLocked(p, id)
	if err != nil {
		return p, fmt.Errorf("start playback of %s: %w", id, err)
	}
	return p, nil
}

func (e *Entity) startSavingLocked(p Player, id string) {
	stop := make(chan struct{})
	e.stopSave = stop
	prefs := e.cfg.Preferences
	interval := e.cfg.SaveInterval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if IsPlaying(p) {
					prefs.SavePosition(id, p.Position())
				}
			}
		}
	}()
}

// teardownLocked stops the save loop and destroys the player
func (e *Entity) teardownLocked() {
	if e.stopSave != nil {
		close(e.stopSave)
		e.stopSave = nil
	}
	if e.player != nil {
		e.player.OnEvent(nil)
		e.player.Destroy()
		e.player = nil
	}
}
