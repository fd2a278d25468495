package client

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// RouteView is a screen the navigator can show
type RouteView interface {
	OnEnter(ctx context.Context, route Route) error
	OnExit(route Route)
}

// NavigatorConfig carries the navigator's collaborators
type NavigatorConfig struct {
	Views      map[RouteKind]RouteView
	NotFound   RouteView
	Continuity *Continuity
	Router     *Router
	Logger     *log.Logger
}

// Navigator switches between views. Leaving a view first gives the
// continuity manager a chance to detach playback, then runs the old view's
// exit to completion before the next view is entered.
type Navigator struct {
	mu         sync.Mutex
	views      map[RouteKind]RouteView
	notFound   RouteView
	continuity *Continuity
	router     *Router
	logger     *log.Logger
	current    Route
	entered    bool
}

// NewNavigator creates a navigator and registers it with the continuity manager
func NewNavigator(cfg NavigatorConfig) *Navigator {
	n := &Navigator{
		views:      cfg.Views,
		notFound:   cfg.NotFound,
		continuity: cfg.Continuity,
		router:     cfg.Router,
		logger:     cfg.Logger,
	}
	if n.views == nil {
		n.views = map[RouteKind]RouteView{}
	}
	if n.continuity != nil {
		n.continuity.SetNavigator(n.Navigate)
	}
	return n
}

// Current returns the active route
func (n *Navigator) Current() (Route, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current, n.entered
}

// Navigate leaves the current view and enters the one for location
func (n *Navigator) Navigate(ctx context.Context, location string) error {
	next, err := ParseRoute(location)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.entered {
		prev := n.current
		if n.continuity != nil {
			n.continuity.DetachOnLeave(prev, next)
		}
		if view := n.viewFor(prev.Kind); view != nil {
			view.OnExit(prev)
		}
		if n.router != nil {
			n.router.ClearJobListeners()
		}
	}

	n.current = next
	n.entered = true
	n.logger.Debug("navigate", "route", next.Kind, "location", next.String())

	view := n.viewFor(next.Kind)
	if view == nil {
		return nil
	}
	return view.OnEnter(ctx, next)
}

func (n *Navigator) viewFor(kind RouteKind) RouteView {
	if view, ok := n.views[kind]; ok && kind != RouteNotFound {
		return view
	}
	return n.notFound
}
