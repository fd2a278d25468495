package client

import (
	"slices"
	"sync"
)

// EmptyStateSink is told the number of bound entities after every change
type EmptyStateSink interface {
	SetCount(n int)
}

// Registry tracks the entities currently bound on screen, by video id. The
// same video may be bound more than once.
type Registry struct {
	mu      sync.Mutex
	byID    map[string][]*Entity
	count   int
	sink    EmptyStateSink
	changed chan struct{}
}

// NewRegistry creates an empty registry; sink may be nil
func NewRegistry(sink EmptyStateSink) *Registry {
	return &Registry{
		byID:    make(map[string][]*Entity),
		sink:    sink,
		changed: make(chan struct{}),
	}
}

// Bind adds e; binding an entity twice is a no-op
func (r *Registry) Bind(e *Entity) {
	id := e.ID()
	r.mu.Lock()
	defer r.mu.Unlock()

	if slices.Contains(r.byID[id], e) {
		return
	}
	r.byID[id] = append(r.byID[id], e)
	r.count++
	r.notifyLocked()
}

// Unbind removes e and reports whether it was bound
func (r *Registry) Unbind(e *Entity) bool {
	id := e.ID()
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.byID[id]
	i := slices.Index(list, e)
	if i < 0 {
		return false
	}
	list = slices.Delete(list, i, i+1)
	if len(list) == 0 {
		delete(r.byID, id)
	} else {
		r.byID[id] = list
	}
	r.count--
	r.notifyLocked()
	return true
}

// UnbindAll removes every entity, used when a view is torn down
func (r *Registry) UnbindAll() []*Entity {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*Entity
	for _, list := range r.byID {
		all = append(all, list...)
	}
	clear(r.byID)
	r.count = 0
	r.notifyLocked()
	return all
}

// Lookup returns the entities bound to a video id
func (r *Registry) Lookup(id string) []*Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.byID[id])
}

// All returns every bound entity
func (r *Registry) All() []*Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*Entity
	for _, list := range r.byID {
		all = append(all, list...)
	}
	return all
}

// Count returns the number of bound entities
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Changed returns a channel closed on the next bind or unbind
func (r *Registry) Changed() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changed
}

// FindPlaying returns a bound entity of id with a playing player
func (r *Registry) FindPlaying(id string) *Entity {
	for _, e := range r.Lookup(id) {
		if e.Playing() {
			return e
		}
	}
	return nil
}

// FindTheatre returns a bound theatre-mode entity with a playing player
func (r *Registry) FindTheatre() *Entity {
	for _, e := range r.All() {
		if e.Theatre() && e.Playing() {
			return e
		}
	}
	return nil
}

func (r *Registry) notifyLocked() {
	close(r.changed)
	r.changed = make(chan struct{})
	if r.sink != nil {
		r.sink.SetCount(r.count)
	}
}
