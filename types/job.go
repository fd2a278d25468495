package types

// JobKind represents the kind of background job tracked per video
type JobKind string

const (
	JobKindDownload  JobKind = "download"
	JobKindSummarize JobKind = "summarize"
)

// Valid reports whether k is one of the known job kinds
func (k JobKind) Valid() bool {
	return k == JobKindDownload || k == JobKindSummarize
}

// Job represents one in-flight background task for a video
type Job struct {
	ID    string   `json:"id"`   // video id the job operates on
	Kind  JobKind  `json:"kind"` // download or summarize
	Lines []string `json:"lines"`
}

// JobLog is the per-video entry carried in a state snapshot
type JobLog struct {
	Lines []string `json:"lines"`
}

// JobState is the full snapshot of every active job, keyed by video id
type JobState struct {
	Downloading map[string]JobLog `json:"downloading"`
	Summarizing map[string]JobLog `json:"summarizing"`
}

// NewJobState returns an empty snapshot with both maps allocated so it
// serializes as `{}` rather than `null`
func NewJobState() JobState {
	return JobState{
		Downloading: make(map[string]JobLog),
		Summarizing: make(map[string]JobLog),
	}
}

// Active reports whether a job of the given kind is running for id
func (s JobState) Active(kind JobKind, id string) bool {
	switch kind {
	case JobKindDownload:
		_, ok := s.Downloading[id]
		return ok
	case JobKindSummarize:
		_, ok := s.Summarizing[id]
		return ok
	}
	return false
}

// Count returns the number of active jobs across both kinds
func (s JobState) Count() int {
	return len(s.Downloading) + len(s.Summarizing)
}
