package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoute(t *testing.T) {
	tests := []struct {
		in    string
		kind  RouteKind
		video string
	}{
		{"/", RouteMain, ""},
		{"", RouteMain, ""},
		{"/?q=cats", RouteMain, ""},
		{"/watch?v=xyz", RouteWatch, "xyz"},
		{"/watch/?v=xyz&t=4", RouteWatch, "xyz"},
		{"/watch", RouteNotFound, ""},
		{"/settings", RouteSettings, ""},
		{"/channels/unknown", RouteNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, err := ParseRoute(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, r.Kind)
			assert.Equal(t, tt.video, r.VideoID)
		})
	}
}

func TestRouteSameWatch(t *testing.T) {
	a, _ := ParseRoute("/watch?v=xyz")
	b, _ := ParseRoute(WatchRoute("xyz"))
	c, _ := ParseRoute("/watch?v=abc")
	m, _ := ParseRoute("/")

	assert.True(t, a.SameWatch(b))
	assert.False(t, a.SameWatch(c))
	assert.False(t, a.SameWatch(m))
	assert.Equal(t, "/watch?v=xyz", b.String())
}

func TestParseEvent(t *testing.T) {
	_, err := ParseEvent([]byte(`{"type":"summary","videoId":"x","summary":"s","transcript":"t"}`))
	assert.NoError(t, err)

	_, err = ParseEvent([]byte(`{"type":"nope"}`))
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = ParseEvent([]byte(`{"type":"ignored","videoId":"x"}`))
	assert.ErrorIs(t, err, ErrMalformedEvent)

	_, err = ParseEvent([]byte(`{`))
	assert.ErrorIs(t, err, ErrMalformedEvent)
}
