package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SyncJob describes a queue entry in a transport-friendly format.
type SyncJob struct {
	ID                int64  `json:"id"`
	IMDBID            string `json:"imdbId"`
	Season            int    `json:"season,omitempty"`
	Episode           int    `json:"episode,omitempty"`
	ReferenceLanguage string `json:"referenceLanguage"`
	TargetLanguage    string `json:"targetLanguage"`
	CacheKey          string `json:"cacheKey"`
	Status            string `json:"status"`
	Progress          string `json:"progress,omitempty"`
	ErrorMessage      string `json:"errorMessage,omitempty"`
	ResultPath        string `json:"resultPath,omitempty"`
	Attempts          int    `json:"attempts"`
	CreatedAt         string `json:"createdAt,omitempty"`
	UpdatedAt         string `json:"updatedAt,omitempty"`
	LastHeartbeat     string `json:"lastHeartbeat,omitempty"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	Version      string             `json:"version"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// EnqueueRequest asks the daemon to schedule a sync job.
type EnqueueRequest struct {
	IMDBID  string `json:"imdbId"`
	Season  int    `json:"season,omitempty"`
	Episode int    `json:"episode,omitempty"`
}

// EnqueueResponse reports the scheduled (or deduplicated) job.
type EnqueueResponse struct {
	Job     SyncJob `json:"job"`
	Created bool    `json:"created"`
}

// QueueListResponse wraps a collection of queue jobs.
type QueueListResponse struct {
	Jobs []SyncJob `json:"jobs"`
}

// QueueJobResponse wraps a single queue job.
type QueueJobResponse struct {
	Job SyncJob `json:"job"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// QueueMutationResponse reports how many jobs a queue operation touched.
type QueueMutationResponse struct {
	Affected int64 `json:"affected"`
}

// ErrorResponse is the body returned for failed API requests.
type ErrorResponse struct {
	Error string `json:"error"`
}
