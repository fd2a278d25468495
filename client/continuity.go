package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultMaterializeTimeout bounds how long Return waits for the origin
// entity to come back
const DefaultMaterializeTimeout = 2 * time.Second

var (
	// ErrNoSession is returned when no overlay is active
	ErrNoSession = errors.New("no picture-in-picture session")

	// ErrNoPlayer is returned when detaching an entity without a player
	ErrNoPlayer = errors.New("entity has no active player")

	// ErrMaterializeTimeout is returned when the origin entity did not
	// produce a player in time; the overlay is left in place
	ErrMaterializeTimeout = errors.New("origin player did not materialize")

	// ErrSessionReplaced is returned when another detach replaced the session
	// while a return was in flight
	ErrSessionReplaced = errors.New("picture-in-picture session was replaced")
)

// Origin is the kind of view a session was detached from
type Origin string

const (
	OriginMain  Origin = "main"
	OriginWatch Origin = "watch"
)

// PipSession describes the video currently carried by the overlay
type PipSession struct {
	OriginVideoID string
	OriginContext Origin
	SavedPosition time.Duration
	WasPlaying    bool
	Source        string
}

// OverlayView shows and hides the floating overlay chrome
type OverlayView interface {
	Show(session PipSession, p Player)
	Hide()
}

// NavigateFunc moves the client to a location
type NavigateFunc func(ctx context.Context, location string) error

// ContinuityConfig carries the continuity manager's collaborators
type ContinuityConfig struct {
	Registry *Registry
	Players  PlayerFactory
	View     OverlayView
	Timeout  time.Duration
	Logger   *log.Logger
}

// Continuity keeps a video playing in an overlay across navigation and hands
// it back to its origin view. It is either idle or holds one session.
type Continuity struct {
	detachMu sync.Mutex

	mu        sync.Mutex
	session   *PipSession
	overlay   Player
	gen       uint64
	returning bool
	navigate  NavigateFunc

	registry *Registry
	players  PlayerFactory
	view     OverlayView
	timeout  time.Duration
	logger   *log.Logger
}

// NewContinuity creates an idle continuity manager
func NewContinuity(cfg ContinuityConfig) *Continuity {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultMaterializeTimeout
	}
	return &Continuity{
		registry: cfg.Registry,
		players:  cfg.Players,
		view:     cfg.View,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
	}
}

// SetNavigator installs the function Return uses to reach the origin route
func (c *Continuity) SetNavigator(fn NavigateFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.navigate = fn
}

// Session returns a copy of the active session
func (c *Continuity) Session() (PipSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return PipSession{}, false
	}
	return *c.session, true
}

// Overlay returns the overlay player, nil when idle
func (c *Continuity) Overlay() Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overlay
}

// Detach moves e's playback into the overlay. The original player is paused
// right away; the overlay seeks to the same position and resumes if the
// original was playing. An existing session is closed first; concurrent
// detaches are serialized and the last one wins.
func (c *Continuity) Detach(origin Origin, e *Entity) error {
	c.detachMu.Lock()
	defer c.detachMu.Unlock()

	p := e.Player()
	if p == nil {
		return ErrNoPlayer
	}

	session := PipSession{
		OriginVideoID: e.ID(),
		OriginContext: origin,
		SavedPosition: p.Position(),
		WasPlaying:    IsPlaying(p),
		Source:        p.Source(),
	}

	c.Close()

	overlay, err := c.players.NewPlayer(session.Source, SurfaceOverlay)
	if err != nil {
		return fmt.Errorf("create overlay player: %w", err)
	}
	p.Pause()
	overlay.SetRate(p.Rate())
	overlay.SetVolume(p.Volume())
	overlay.SetMuted(p.Muted())
	overlay.Seek(session.SavedPosition)
	if session.WasPlaying {
		if err := overlay.Play(); err != nil {
			c.logger.Warn("overlay did not resume", "video", session.OriginVideoID, "err", err)
		}
	}

	c.mu.Lock()
	displaced := c.overlay
	c.gen++
	c.session = &session
	c.overlay = overlay
	c.mu.Unlock()

	if displaced != nil {
		displaced.Destroy()
	}
	c.view.Show(session, overlay)
	c.logger.Debug("detached to overlay", "video", session.OriginVideoID, "origin", origin, "pos", session.SavedPosition)
	return nil
}

// DetachOnLeave runs before a route change. Leaving a watch view while it
// plays detaches it unless the target is the same video; otherwise a playing
// theatre-mode entity on the main view is detached. Navigation started by
// Return never detaches.
func (c *Continuity) DetachOnLeave(from, to Route) {
	c.mu.Lock()
	returning := c.returning
	c.mu.Unlock()
	if returning {
		return
	}

	var (
		e      *Entity
		origin Origin
	)
	switch from.Kind {
	case RouteWatch:
		if from.SameWatch(to) {
			return
		}
		e, origin = c.registry.FindPlaying(from.VideoID), OriginWatch
	case RouteMain:
		e, origin = c.registry.FindTheatre(), OriginMain
	}
	if e == nil {
		return
	}
	if err := c.Detach(origin, e); err != nil {
		c.logger.Warn("detach on navigation failed", "from", from, "err", err)
	}
}

// Close tears the overlay down and clears the session without restoring
func (c *Continuity) Close() {
	c.mu.Lock()
	overlay := c.overlay
	had := c.session != nil
	c.session = nil
	c.overlay = nil
	c.gen++
	c.mu.Unlock()

	if overlay != nil {
		overlay.Destroy()
	}
	if had {
		c.view.Hide()
	}
}

// Return navigates back to the session's origin, waits for the origin entity
// to produce a player, transfers position and play state, and only then
// removes the overlay. On timeout, or when the origin player cannot resume,
// the overlay stays and the session remains.
func (c *Continuity) Return(ctx context.Context) error {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	session := *c.session
	overlay := c.overlay
	gen := c.gen
	navigate := c.navigate
	c.returning = true
	c.mu.Unlock()

	location := "/"
	if session.OriginContext == OriginWatch {
		location = WatchRoute(session.OriginVideoID)
	}
	var navErr error
	if navigate != nil {
		navErr = navigate(ctx, location)
	}

	c.mu.Lock()
	c.returning = false
	replaced := c.gen != gen
	c.mu.Unlock()
	if navErr != nil {
		return fmt.Errorf("navigate to %s: %w", location, navErr)
	}
	if replaced {
		return ErrSessionReplaced
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	e, target, err := c.materialize(waitCtx, session.OriginVideoID)
	if err != nil {
		c.logger.Warn("return abandoned, keeping overlay", "video", session.OriginVideoID, "err", err)
		return err
	}

	if !c.current(gen) {
		target.Pause()
		return ErrSessionReplaced
	}

	target.Seek(overlay.Position())
	if IsPlaying(overlay) {
		if err := target.Play(); err != nil {
			target.Pause()
			c.logger.Warn("origin player did not resume, keeping overlay", "video", session.OriginVideoID, "err", err)
			return fmt.Errorf("resume %s: %w", session.OriginVideoID, err)
		}
	} else {
		target.Pause()
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		target.Pause()
		return ErrSessionReplaced
	}
	c.session = nil
	c.overlay = nil
	c.gen++
	c.mu.Unlock()

	overlay.Destroy()
	c.view.Hide()
	if session.OriginContext == OriginMain {
		e.SetTheatre(true)
	}
	return nil
}

// current reports whether gen still names the active session
func (c *Continuity) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

// materialize waits for an entity of id to be bound and activates it
func (c *Continuity) materialize(ctx context.Context, id string) (*Entity, Player, error) {
	for {
		changed := c.registry.Changed()
		for _, e := range c.registry.Lookup(id) {
			if !e.Video().Downloaded {
				continue
			}
			p, err := e.Activate()
			if p != nil {
				return e, p, nil
			}
			if err != nil {
				c.logger.Debug("origin entity could not activate yet", "video", id, "err", err)
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, nil, ErrMaterializeTimeout
			}
			return nil, nil, ctx.Err()
		case <-changed:
		}
	}
}
