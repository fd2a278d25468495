package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParsePercent(t *testing.T) {
	tests := []struct {
		line string
		want float64
		ok   bool
	}{
		{"[download]   3.2% of ~ 120.00MiB at 2.00MiB/s ETA 00:58", 3.2, true},
		{"[download] 100% of 120.00MiB in 00:01:00", 100, true},
		{"[download]  57% of 10MiB", 57, true},
		{"[download] Destination: /data/videos/abc.mp4", 0, false},
		{"[Merger] Merging formats into \"abc.mp4\"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := ParsePercent(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsDownloadComplete(t *testing.T) {
	assert.True(t, IsDownloadComplete("[download] 100% of 1.00MiB"))
	assert.True(t, IsDownloadComplete("[download] /data/videos/abc.mp4 has already been downloaded"))
	assert.False(t, IsDownloadComplete("[download]  99.9% of 1.00MiB"))
}

func TestProgressIndicatorFreshnessExpires(t *testing.T) {
	display := &fakeDisplay{}
	p := NewProgressIndicator(display, 30*time.Millisecond)
	defer p.Stop()

	p.Push("[download]  10.0% of 1MiB")
	assert.True(t, p.Fresh())

	assert.Eventually(t, func() bool { return !p.Fresh() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []bool{true, false}, display.freshFlags())
}

func TestProgressIndicatorNewLineExtendsFreshness(t *testing.T) {
	display := &fakeDisplay{}
	p := NewProgressIndicator(display, 80*time.Millisecond)
	defer p.Stop()

	p.Push("one")
	time.Sleep(50 * time.Millisecond)
	p.Push("two")
	time.Sleep(50 * time.Millisecond)

	assert.True(t, p.Fresh())
	assert.Equal(t, []string{"one", "two"}, display.pushed())
}

func TestProgressIndicatorResetsOnAlreadyDownloaded(t *testing.T) {
	display := &fakeDisplay{}
	p := NewProgressIndicator(display, time.Hour)
	defer p.Stop()

	p.Push("[download]  64.0% of 1MiB")
	p.Push("[download] abc.mp4 has already been downloaded")

	assert.Zero(t, p.Percent())
	assert.Equal(t, 1, display.resets)
}
