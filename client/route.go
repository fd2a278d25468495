package client

import (
	"fmt"
	"net/url"
	"strings"
)

// RouteKind identifies a client view
type RouteKind int

const (
	RouteNotFound RouteKind = iota
	RouteMain
	RouteWatch
	RouteSettings
)

func (k RouteKind) String() string {
	switch k {
	case RouteMain:
		return "main"
	case RouteWatch:
		return "watch"
	case RouteSettings:
		return "settings"
	default:
		return "not-found"
	}
}

// Route is a parsed client location
type Route struct {
	Kind    RouteKind
	Path    string
	VideoID string
	Query   url.Values
}

// String renders the route back into a location
func (r Route) String() string {
	if len(r.Query) == 0 {
		return r.Path
	}
	return r.Path + "?" + r.Query.Encode()
}

// SameWatch reports whether both routes show the watch view of one video
func (r Route) SameWatch(other Route) bool {
	return r.Kind == RouteWatch && other.Kind == RouteWatch && r.VideoID == other.VideoID
}

// ParseRoute maps a location such as "/watch?v=abc" to a route. A watch
// location without a video id resolves to the not-found view.
func ParseRoute(raw string) (Route, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Route{}, fmt.Errorf("parse route %q: %w", raw, err)
	}

	path := strings.TrimRight(u.Path, "/")
	if path == "" {
		path = "/"
	}
	route := Route{Path: path, Query: u.Query()}

	switch path {
	case "/":
		route.Kind = RouteMain
	case "/settings":
		route.Kind = RouteSettings
	case "/watch":
		route.VideoID = route.Query.Get("v")
		if route.VideoID != "" {
			route.Kind = RouteWatch
		}
	}
	return route, nil
}

// WatchRoute returns the watch location of a video
func WatchRoute(videoID string) string {
	return "/watch?" + url.Values{"v": {videoID}}.Encode()
}
