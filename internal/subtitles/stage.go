package subtitles

import (
	"context"

	"log/slog"

	"subsync/internal/logging"
	"subsync/internal/queue"
	"subsync/internal/stage"
)

// Stage adapts the sync service to the workflow handler contract.
type Stage struct {
	store   *queue.Store
	service *Service
	logger  *slog.Logger
}

// NewStage wraps the sync service for workflow execution.
func NewStage(store *queue.Store, service *Service, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{store: store, service: service, logger: logger}
}

// Prepare clears stale error state before a sync attempt.
func (s *Stage) Prepare(ctx context.Context, job *queue.Job) error {
	job.ErrorMessage = ""
	job.ProgressMessage = "Starting subtitle sync"
	return nil
}

// Execute runs the sync pipeline, persisting intermediate status transitions
// so queue observers see searching/downloading/syncing progress.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	path, err := s.service.Process(ctx, job, func(status queue.Status, message string) {
		job.Status = status
		job.ProgressMessage = message
		if updateErr := s.store.Update(ctx, job); updateErr != nil {
			s.logger.Warn("persist progress failed",
				logging.Int64(logging.FieldJobID, job.ID),
				logging.Error(updateErr),
			)
		}
	})
	if err != nil {
		return err
	}
	job.ResultPath = path
	return nil
}

// HealthCheck reports stage readiness. A missing ffsubsync binary does not
// make the stage unhealthy because the built-in aligner covers alignment.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "subtitles"
	if s.service == nil {
		return stage.Unhealthy(name, "sync service not configured")
	}
	return stage.Healthy(name)
}
