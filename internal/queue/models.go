package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a sync job.
type Status string

const (
	StatusPending     Status = "pending"
	StatusSearching   Status = "searching"
	StatusDownloading Status = "downloading"
	StatusSyncing     Status = "syncing"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusSearching,
	StatusDownloading,
	StatusSyncing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusSearching:   {},
	StatusDownloading: {},
	StatusSyncing:     {},
}

// ProcessingStatuses returns the statuses that represent in-flight work.
func ProcessingStatuses() []Status {
	return []Status{StatusSearching, StatusDownloading, StatusSyncing}
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Job represents a subtitle sync job persisted in SQLite.
type Job struct {
	ID                int64
	IMDBID            string
	Season            int
	Episode           int
	ReferenceLanguage string
	TargetLanguage    string
	CacheKey          string
	Status            Status
	ResultPath        string
	ErrorMessage      string
	ProgressMessage   string
	Attempts          int
	CreatedAt         time.Time
	UpdatedAt         time.Time
	LastHeartbeat     *time.Time
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (j Job) IsProcessing() bool {
	_, ok := processingStatuses[j.Status]
	return ok
}

// IsEpisode reports whether the job targets a series episode rather than a movie.
func (j Job) IsEpisode() bool {
	return j.Season > 0 && j.Episode > 0
}

// SetFailed marks the job as failed with the given error message and clears
// the heartbeat.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.ProgressMessage = message
	j.LastHeartbeat = nil
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}
