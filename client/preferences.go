package client

import (
	"sync"
	"time"
)

// Preferences persists per-video playback positions and the preferred rate
type Preferences interface {
	SavePosition(videoID string, pos time.Duration)
	Position(videoID string) (time.Duration, bool)
	ClearPosition(videoID string)
	Rate() float64
	SetRate(rate float64)
}

// MemoryPreferences keeps preferences in process memory
type MemoryPreferences struct {
	mu        sync.Mutex
	positions map[string]time.Duration
	rate      float64
}

// NewMemoryPreferences creates an empty store with a 1x rate preference
func NewMemoryPreferences() *MemoryPreferences {
	return &MemoryPreferences{positions: make(map[string]time.Duration), rate: 1}
}

func (m *MemoryPreferences) SavePosition(videoID string, pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[videoID] = pos
}

func (m *MemoryPreferences) Position(videoID string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[videoID]
	return pos, ok
}

func (m *MemoryPreferences) ClearPosition(videoID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, videoID)
}

func (m *MemoryPreferences) Rate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate
}

func (m *MemoryPreferences) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = rate
}
