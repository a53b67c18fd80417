package api

import (
	"slices"
	"time"

	"subsync/internal/queue"
	"subsync/internal/stage"
	"subsync/internal/workflow"
)

// FromJob converts a queue record to its API representation.
func FromJob(job *queue.Job) SyncJob {
	if job == nil {
		return SyncJob{}
	}

	dto := SyncJob{
		ID:                job.ID,
		IMDBID:            job.IMDBID,
		Season:            job.Season,
		Episode:           job.Episode,
		ReferenceLanguage: job.ReferenceLanguage,
		TargetLanguage:    job.TargetLanguage,
		CacheKey:          job.CacheKey,
		Status:            string(job.Status),
		Progress:          job.ProgressMessage,
		ErrorMessage:      job.ErrorMessage,
		ResultPath:        job.ResultPath,
		Attempts:          job.Attempts,
	}
	dto.CreatedAt = FormatTime(job.CreatedAt)
	dto.UpdatedAt = FormatTime(job.UpdatedAt)
	if job.LastHeartbeat != nil {
		dto.LastHeartbeat = FormatTime(*job.LastHeartbeat)
	}
	return dto
}

// FromJobs converts a slice of queue records into API DTOs.
func FromJobs(jobs []*queue.Job) []SyncJob {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]SyncJob, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromWorkflowHealth converts workflow health into the API payload.
func FromWorkflowHealth(health workflow.Health, stats map[queue.Status]int) WorkflowStatus {
	wf := WorkflowStatus{
		Running:    health.Running,
		QueueStats: MergeQueueStats(stats),
		LastError:  health.LastError,
	}
	if health.Stage.Name != "" {
		wf.StageHealth = StageHealthSlice([]stage.Health{health.Stage})
	}
	return wf
}

// MergeQueueStats produces a string-keyed representation of queue stats.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// StageHealthSlice converts stage health records into a deterministic slice.
func StageHealthSlice(health []stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	out := make([]StageHealth, 0, len(health))
	for _, h := range health {
		out = append(out, StageHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	slices.SortFunc(out, func(a, b StageHealth) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
