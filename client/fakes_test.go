package client

import (
	"sync"
	"time"

	"tubewatch/types"
)

type fakePlayer struct {
	mu        sync.Mutex
	source    string
	surface   Surface
	pos       time.Duration
	paused    bool
	ended     bool
	rate      float64
	volume    float64
	muted     bool
	destroyed bool
	playErr   error
	onEvent   func(PlayerEventKind)
}

func (p *fakePlayer) Source() string { return p.source }

func (p *fakePlayer) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

func (p *fakePlayer) Seek(pos time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos = pos
}

func (p *fakePlayer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *fakePlayer) Ended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ended
}

func (p *fakePlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playErr != nil {
		return p.playErr
	}
	p.paused = false
	p.ended = false
	return nil
}

func (p *fakePlayer) Pause() {
	p.mu.Lock()
	p.paused = true
	fn := p.onEvent
	p.mu.Unlock()
	if fn != nil {
		fn(PlayerPaused)
	}
}

func (p *fakePlayer) end() {
	p.mu.Lock()
	p.ended = true
	p.paused = true
	fn := p.onEvent
	p.mu.Unlock()
	if fn != nil {
		fn(PlayerEnded)
	}
}

func (p *fakePlayer) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

func (p *fakePlayer) SetRate(rate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rate = rate
}

func (p *fakePlayer) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *fakePlayer) SetVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
}

func (p *fakePlayer) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

func (p *fakePlayer) SetMuted(muted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = muted
}

func (p *fakePlayer) OnEvent(fn func(PlayerEventKind)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEvent = fn
}

func (p *fakePlayer) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyed = true
	p.paused = true
}

func (p *fakePlayer) isDestroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

// fakePlayers records every player it creates. Overlay players are created
// after overlayDelay; inline players fail Play with inlinePlayErr.
type fakePlayers struct {
	mu            sync.Mutex
	created       []*fakePlayer
	overlayDelay  time.Duration
	inlinePlayErr error
}

func (f *fakePlayers) NewPlayer(source string, surface Surface) (Player, error) {
	f.mu.Lock()
	delay := f.overlayDelay
	f.mu.Unlock()
	if surface == SurfaceOverlay && delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	p := &fakePlayer{source: source, surface: surface, paused: true, rate: 1, volume: 1}
	if surface == SurfaceInline {
		p.playErr = f.inlinePlayErr
	}
	f.created = append(f.created, p)
	return p, nil
}

// live counts players of surface that were not destroyed
func (f *fakePlayers) live(surface Surface) int {
	f.mu.Lock()
	created := append([]*fakePlayer(nil), f.created...)
	f.mu.Unlock()

	n := 0
	for _, p := range created {
		if p.surface == surface && !p.isDestroyed() {
			n++
		}
	}
	return n
}

// playing counts players that are currently playing
func (f *fakePlayers) playing() int {
	f.mu.Lock()
	created := append([]*fakePlayer(nil), f.created...)
	f.mu.Unlock()

	n := 0
	for _, p := range created {
		if !p.isDestroyed() && IsPlaying(p) {
			n++
		}
	}
	return n
}

func (f *fakePlayers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *fakePlayers) last() *fakePlayer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.created) == 0 {
		return nil
	}
	return f.created[len(f.created)-1]
}

type render struct {
	video  types.Video
	status Status
	player Player
}

type fakeView struct {
	mu       sync.Mutex
	renders  []render
	statuses []Status
}

func (v *fakeView) Render(video types.Video, status Status, p Player) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.renders = append(v.renders, render{video: video, status: status, player: p})
}

func (v *fakeView) SetStatus(status Status) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.statuses = append(v.statuses, status)
}

func (v *fakeView) renderCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.renders)
}

func (v *fakeView) lastRender() render {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.renders[len(v.renders)-1]
}

type fakeOverlayView struct {
	mu     sync.Mutex
	shown  []PipSession
	hidden int
}

func (v *fakeOverlayView) Show(session PipSession, _ Player) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.shown = append(v.shown, session)
}

func (v *fakeOverlayView) Hide() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hidden++
}

func (v *fakeOverlayView) hiddenCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hidden
}

type countSink struct {
	mu     sync.Mutex
	counts []int
}

func (s *countSink) SetCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = append(s.counts, n)
}

type fakeDisplay struct {
	mu       sync.Mutex
	lines    []string
	percents []float64
	resets   int
	fresh    []bool
}

func (d *fakeDisplay) Line(line string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lines = append(d.lines, line)
}

func (d *fakeDisplay) Percent(pct float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.percents = append(d.percents, pct)
}

func (d *fakeDisplay) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resets++
}

func (d *fakeDisplay) Fresh(fresh bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fresh = append(d.fresh, fresh)
}

func (d *fakeDisplay) freshFlags() []bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]bool(nil), d.fresh...)
}

func (d *fakeDisplay) pushed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.lines...)
}

type fakeList struct {
	mu      sync.Mutex
	channel string
	videos  []types.Video
}

func (l *fakeList) Prepend(channel string, videos []types.Video) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.channel = channel
	l.videos = append(append([]types.Video(nil), videos...), l.videos...)
}

func downloadedVideo(id string) types.Video {
	return types.Video{ID: id, Title: "Video " + id, Thumbnail: "https://i.ytimg.com/vi/" + id + "/mqdefault.jpg", Downloaded: true}
}

func newTestEntity(v types.Video, players *fakePlayers) (*Entity, *fakeView) {
	view := &fakeView{}
	e := NewEntity(v, view, EntityConfig{Players: players, Source: MediaSource("http://localhost:3000")})
	return e, view
}
