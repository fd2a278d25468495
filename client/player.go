package client

import (
	"fmt"
	"strings"
	"time"

	"tubewatch/types"
)

// Surface is where a player is mounted
type Surface string

const (
	SurfaceInline  Surface = "inline"
	SurfaceOverlay Surface = "overlay"
)

// PlayerEventKind identifies a playback notification
type PlayerEventKind int

const (
	PlayerPaused PlayerEventKind = iota
	PlayerEnded
	PlayerRateChanged
)

// Player is a live playback surface. Implementations wrap whatever actually
// decodes and presents media; this package only drives them.
type Player interface {
	Source() string
	Position() time.Duration
	Seek(pos time.Duration)
	Paused() bool
	Ended() bool
	Play() error
	Pause()
	Rate() float64
	SetRate(rate float64)
	Volume() float64
	SetVolume(volume float64)
	Muted() bool
	SetMuted(muted bool)
	// OnEvent registers the single notification callback. It may be invoked
	// from any goroutine.
	OnEvent(fn func(PlayerEventKind))
	Destroy()
}

// PlayerFactory creates players for a media source
type PlayerFactory interface {
	NewPlayer(source string, surface Surface) (Player, error)
}

// PlayerFactoryFunc adapts a function to [PlayerFactory]
type PlayerFactoryFunc func(source string, surface Surface) (Player, error)

// NewPlayer calls f
func (f PlayerFactoryFunc) NewPlayer(source string, surface Surface) (Player, error) {
	return f(source, surface)
}

// PlaybackState is the volatile part of a player carried across a rebuild
type PlaybackState struct {
	Position time.Duration
	Rate     float64
	Volume   float64
	Muted    bool
	Playing  bool
}

// Capture reads the volatile state of p
func Capture(p Player) PlaybackState {
	return PlaybackState{
		Position: p.Position(),
		Rate:     p.Rate(),
		Volume:   p.Volume(),
		Muted:    p.Muted(),
		Playing:  IsPlaying(p),
	}
}

// Restore reapplies a captured state and resumes playback if it was playing
func Restore(p Player, st PlaybackState) error {
	p.Seek(st.Position)
	p.SetRate(st.Rate)
	p.SetVolume(st.Volume)
	p.SetMuted(st.Muted)
	if st.Playing {
		return p.Play()
	}
	return nil
}

// IsPlaying reports whether p is neither paused nor ended
func IsPlaying(p Player) bool {
	return p != nil && !p.Paused() && !p.Ended()
}

// SourceFunc maps a video to the URL its player loads
type SourceFunc func(v types.Video) string

// MediaSource returns a SourceFunc pointing at the server's media endpoint
func MediaSource(baseURL string) SourceFunc {
	base := strings.TrimRight(baseURL, "/")
	return func(v types.Video) string {
		return fmt.Sprintf("%s/api/media/%s", base, v.ID)
	}
}
