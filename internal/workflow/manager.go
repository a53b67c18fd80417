package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"subsync/internal/config"
	"subsync/internal/logging"
	"subsync/internal/notifications"
	"subsync/internal/queue"
	"subsync/internal/services"
	"subsync/internal/stage"
)

// Manager coordinates background processing of the sync queue with a pool of
// workers. Workers claim pending jobs with an atomic status transition, so a
// job is only ever processed by one worker at a time.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service
	handler  stage.Handler
	observer SyncObserver

	heartbeat          *HeartbeatMonitor
	pollInterval       time.Duration
	errorRetryInterval time.Duration
	jobTimeout         time.Duration
	workers            int
	maxAttempts        int

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a workflow manager with the default notifier.
func NewManager(cfg *config.Config, store *queue.Store, handler stage.Handler, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, handler, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier
// (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, handler stage.Handler, logger *slog.Logger, notifier notifications.Service) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}
	return &Manager{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		notifier: notifier,
		handler:  handler,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		pollInterval:       time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorRetryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		jobTimeout:         time.Duration(cfg.Sync.JobTimeout) * time.Second,
		workers:            workers,
		maxAttempts:        cfg.Sync.MaxAttempts,
	}
}

// SyncObserver receives the outcome and wall time of finished job
// executions. Outcome is "completed", "retried", or "failed".
type SyncObserver interface {
	ObserveSync(outcome string, duration time.Duration)
}

// SetObserver installs a metrics observer. Must be called before Start.
func (m *Manager) SetObserver(observer SyncObserver) {
	m.observer = observer
}

func (m *Manager) observeSync(outcome string, started time.Time) {
	if m.observer != nil {
		m.observer.ObserveSync(outcome, time.Since(started))
	}
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.handler == nil {
		m.mu.Unlock()
		return errors.New("workflow stage not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(m.workers)
	m.mu.Unlock()

	for i := 0; i < m.workers; i++ {
		go m.runWorker(runCtx, i+1)
	}
	return nil
}

// Stop terminates background processing and waits for in-flight jobs to
// observe cancellation.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Running reports whether background processing is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// LastError returns the most recent worker error, if any.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) runWorker(ctx context.Context, workerID int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("worker", workerID))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.heartbeat.ReclaimStaleJobs(ctx, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("reclaim stale jobs failed; stuck jobs may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}

		job, err := m.store.NextForStatuses(ctx, queue.StatusPending)
		if err != nil {
			m.handleFetchError(ctx, logger, err)
			continue
		}
		if job == nil {
			m.waitForJobOrShutdown(ctx)
			continue
		}

		claimed, err := m.store.Transition(ctx, job.ID, queue.StatusPending, queue.StatusSearching)
		if err != nil {
			m.handleFetchError(ctx, logger, err)
			continue
		}
		if !claimed {
			// Another worker grabbed it first.
			continue
		}
		job.Status = queue.StatusSearching

		if err := m.processJob(ctx, logger, job); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return
			}
		}
	}
}

func (m *Manager) handleFetchError(ctx context.Context, logger *slog.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	m.setLastError(err)
	logger.Error("failed to fetch next queue job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(m.errorRetryInterval):
	}
}

func (m *Manager) waitForJobOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}

func (m *Manager) processJob(ctx context.Context, workerLogger *slog.Logger, job *queue.Job) error {
	jobCtx := logging.WithJobID(ctx, job.ID)
	jobCtx = logging.WithStage(jobCtx, "sync")
	jobLogger := logging.WithContext(jobCtx, workerLogger).With(
		logging.String(logging.FieldCacheKey, job.CacheKey),
	)

	job.Attempts++
	start := time.Now()
	jobLogger.Info("sync started",
		logging.String(logging.FieldEventType, "sync_start"),
		logging.Int("attempt", job.Attempts),
		logging.String("imdb_id", job.IMDBID),
	)

	if err := m.handler.Prepare(jobCtx, job); err != nil {
		m.handleJobFailure(ctx, jobLogger, job, err, start)
		return err
	}
	if err := m.store.Update(jobCtx, job); err != nil {
		wrapped := fmt.Errorf("persist sync preparation: %w", err)
		jobLogger.Error("failed to persist sync preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(jobCtx, job)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) && ctx.Err() != nil {
			jobLogger.Debug("sync interrupted by shutdown")
			return execErr
		}
		if errors.Is(execErr, context.DeadlineExceeded) {
			execErr = services.Wrap(services.ErrTimeout, "sync", "execute",
				fmt.Sprintf("job exceeded %s timeout", m.jobTimeout), execErr)
		}
		m.handleJobFailure(ctx, jobLogger, job, execErr, start)
		return execErr
	}

	job.Status = queue.StatusCompleted
	job.ProgressMessage = "Subtitle sync completed"
	job.ErrorMessage = ""
	job.LastHeartbeat = nil
	if err := m.store.Update(ctx, job); err != nil {
		wrapped := fmt.Errorf("persist sync result: %w", err)
		jobLogger.Error("failed to persist sync result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	m.observeSync("completed", start)
	jobLogger.Info("sync completed",
		logging.String(logging.FieldEventType, "sync_complete"),
		logging.String("result_path", job.ResultPath),
		logging.Duration("sync_duration", time.Since(start)),
	)
	if err := m.notifier.NotifySyncCompleted(ctx, job.CacheKey); err != nil {
		jobLogger.Warn("completion notification failed", logging.Error(err))
	}
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, job *queue.Job) error {
	execCtx := ctx
	cancelTimeout := func() {}
	if m.jobTimeout > 0 {
		execCtx, cancelTimeout = context.WithTimeout(ctx, m.jobTimeout)
	}
	defer cancelTimeout()

	hbCtx, hbCancel := context.WithCancel(execCtx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)

	execErr := m.handler.Execute(execCtx, job)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) handleJobFailure(ctx context.Context, logger *slog.Logger, job *queue.Job, jobErr error, started time.Time) {
	message := failureMessage(jobErr)
	retriable := services.IsRetriable(jobErr)
	retry := retriable && (m.maxAttempts <= 0 || job.Attempts < m.maxAttempts)

	if retry {
		m.observeSync("retried", started)
		job.Status = queue.StatusPending
		job.ErrorMessage = message
		job.ProgressMessage = fmt.Sprintf("Retrying after failure (attempt %d)", job.Attempts)
		job.LastHeartbeat = nil
		logger.Warn("sync failed, will retry",
			logging.Error(jobErr),
			logging.String(logging.FieldEventType, "sync_retry"),
			logging.Int("attempt", job.Attempts),
			logging.Int("max_attempts", m.maxAttempts),
		)
	} else {
		m.observeSync("failed", started)
		job.SetFailed(message)
		logger.Error("sync failed",
			logging.Error(jobErr),
			logging.String(logging.FieldEventType, "sync_failure"),
			logging.Int("attempt", job.Attempts),
			logging.Bool("retriable", retriable),
		)
	}
	m.setLastError(jobErr)

	if err := m.store.Update(ctx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist sync failure")
		} else {
			logger.Error("failed to persist sync failure", logging.Error(err))
		}
		return
	}

	if !retry {
		if err := m.notifier.NotifySyncFailed(ctx, job.CacheKey, message); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}
	}
}

func failureMessage(err error) string {
	if err == nil {
		return "sync failed without error detail"
	}
	message := strings.TrimSpace(err.Error())
	if message == "" {
		return "sync failed"
	}
	return message
}

// Health summarizes workflow and queue state for diagnostics.
type Health struct {
	Running   bool
	Queue     queue.HealthSummary
	Stage     stage.Health
	LastError string
}

// Health reports the current workflow health.
func (m *Manager) Health(ctx context.Context) (Health, error) {
	summary, err := m.store.Health(ctx)
	if err != nil {
		return Health{}, err
	}
	health := Health{
		Running: m.Running(),
		Queue:   summary,
	}
	if m.handler != nil {
		health.Stage = m.handler.HealthCheck(ctx)
	}
	if lastErr := m.LastError(); lastErr != nil {
		health.LastError = lastErr.Error()
	}
	return health, nil
}
