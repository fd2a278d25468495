package client

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultFreshness is how long the progress indicator stays marked as updated
// after the last log line
const DefaultFreshness = 10 * time.Second

var downloadPercentRe = regexp.MustCompile(`\[download\]\s+(\d+(?:\.\d+)?)%`)

// ProgressDisplay renders the global job progress indicator
type ProgressDisplay interface {
	Line(line string)
	Percent(pct float64)
	Reset()
	Fresh(fresh bool)
}

// ProgressIndicator turns download log lines into a percentage and a
// freshness flag that expires when lines stop arriving
type ProgressIndicator struct {
	mu       sync.Mutex
	display  ProgressDisplay
	freshFor time.Duration
	timer    *time.Timer
	gen      uint64
	fresh    bool
	percent  float64
}

// NewProgressIndicator creates an indicator; freshFor <= 0 uses [DefaultFreshness]
func NewProgressIndicator(display ProgressDisplay, freshFor time.Duration) *ProgressIndicator {
	if freshFor <= 0 {
		freshFor = DefaultFreshness
	}
	return &ProgressIndicator{display: display, freshFor: freshFor}
}

// Push records one log line
func (p *ProgressIndicator) Push(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.display.Line(line)
	p.touchLocked()

	if pct, ok := ParsePercent(line); ok {
		p.percent = pct
		p.display.Percent(pct)
	}
	if IsDownloadComplete(line) {
		p.resetLocked()
	}
}

// Reset clears the percentage
func (p *ProgressIndicator) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
}

// Percent returns the last parsed percentage, 0 after a reset
func (p *ProgressIndicator) Percent() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.percent
}

// Fresh reports whether a line arrived within the freshness window
func (p *ProgressIndicator) Fresh() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fresh
}

// Stop cancels the freshness timer
func (p *ProgressIndicator) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.gen++
}

func (p *ProgressIndicator) touchLocked() {
	if p.timer != nil {
		p.timer.Stop()
	}
	p.gen++
	gen := p.gen
	if !p.fresh {
		p.fresh = true
		p.display.Fresh(true)
	}
	p.timer = time.AfterFunc(p.freshFor, func() { p.expire(gen) })
}

// expire ignores timers superseded by a newer line
func (p *ProgressIndicator) expire(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen || !p.fresh {
		return
	}
	p.fresh = false
	p.timer = nil
	p.display.Fresh(false)
}

func (p *ProgressIndicator) resetLocked() {
	p.percent = 0
	p.display.Reset()
}

// ParsePercent extracts the percentage from a yt-dlp `[download] NN.N%` line
func ParsePercent(line string) (float64, bool) {
	m := downloadPercentRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return pct, true
}

// IsDownloadComplete reports whether a log line marks the end of a download
func IsDownloadComplete(line string) bool {
	return strings.Contains(line, "[download] 100%") || strings.Contains(line, "has already been downloaded")
}
