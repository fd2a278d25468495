package services

import (
	"slices"
	"sync"

	"tubewatch/types"
)

// JobStore is the single source of truth for which background jobs are running.
// Every value-changing mutation invokes the registered change callback exactly
// once with a full snapshot; assignments that leave a job unchanged are silent.
type JobStore interface {
	Start(kind types.JobKind, id string) (types.Job, bool)
	AppendLine(kind types.JobKind, id, line string) bool
	Set(kind types.JobKind, id string, lines []string) bool
	Complete(kind types.JobKind, id string) bool
	Get(kind types.JobKind, id string) (types.Job, bool)
	Snapshot() types.JobState
	OnChange(fn func(types.JobState))
}

// jobStore keeps jobs per kind, keyed by video id
type jobStore struct {
	mu       sync.Mutex
	jobs     map[types.JobKind]map[string]*types.Job
	onChange func(types.JobState)
}

// NewJobStore creates an empty job store
func NewJobStore() JobStore {
	return &jobStore{
		jobs: map[types.JobKind]map[string]*types.Job{
			types.JobKindDownload:  {},
			types.JobKindSummarize: {},
		},
	}
}

// OnChange registers the notification callback, replacing any previous one.
// The callback runs under the store lock so notifications arrive in mutation
// order; it must not call back into the store.
func (s *jobStore) OnChange(fn func(types.JobState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Start inserts a job for (kind, id) unless one is already active. The bool
// reports whether a new job was created. Insertion alone is not an observable
// change; the first appended line is.
func (s *jobStore) Start(kind types.JobKind, id string) (types.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.jobs[kind]
	if !ok {
		return types.Job{}, false
	}
	if job, exists := byID[id]; exists {
		return cloneJob(job), false
	}

	job := &types.Job{ID: id, Kind: kind, Lines: []string{}}
	byID[id] = job
	return cloneJob(job), true
}

// AppendLine appends a progress line to an active job and notifies
func (s *jobStore) AppendLine(kind types.JobKind, id, line string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.lookup(kind, id)
	if !ok {
		return false
	}
	job.Lines = append(job.Lines, line)
	s.notify()
	return true
}

// Set assigns the full line log of an active job. Assigning the current value
// is a no-op and does not notify.
func (s *jobStore) Set(kind types.JobKind, id string, lines []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.lookup(kind, id)
	if !ok {
		return false
	}
	if slices.Equal(job.Lines, lines) {
		return false
	}
	job.Lines = slices.Clone(lines)
	s.notify()
	return true
}

// Complete removes a job and notifies. Completing an unknown job is a no-op.
func (s *jobStore) Complete(kind types.JobKind, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(kind, id); !ok {
		return false
	}
	delete(s.jobs[kind], id)
	s.notify()
	return true
}

// Get returns a copy of an active job
func (s *jobStore) Get(kind types.JobKind, id string) (types.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.lookup(kind, id)
	if !ok {
		return types.Job{}, false
	}
	return cloneJob(job), true
}

// Snapshot returns a deep copy of every active job
func (s *jobStore) Snapshot() types.JobState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *jobStore) lookup(kind types.JobKind, id string) (*types.Job, bool) {
	byID, ok := s.jobs[kind]
	if !ok {
		return nil, false
	}
	job, ok := byID[id]
	return job, ok
}

func (s *jobStore) snapshot() types.JobState {
	state := types.NewJobState()
	for id, job := range s.jobs[types.JobKindDownload] {
		state.Downloading[id] = types.JobLog{Lines: slices.Clone(job.Lines)}
	}
	for id, job := range s.jobs[types.JobKindSummarize] {
		state.Summarizing[id] = types.JobLog{Lines: slices.Clone(job.Lines)}
	}
	return state
}

// notify must be called with s.mu held
func (s *jobStore) notify() {
	if s.onChange != nil {
		s.onChange(s.snapshot())
	}
}

func cloneJob(job *types.Job) types.Job {
	return types.Job{ID: job.ID, Kind: job.Kind, Lines: slices.Clone(job.Lines)}
}
