package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subsync/internal/config"
	"subsync/internal/logging"
	"subsync/internal/queue"
	"subsync/internal/services"
	"subsync/internal/stage"
	"subsync/internal/testsupport"
	"subsync/internal/workflow"
)

type stubHandler struct {
	mu       sync.Mutex
	calls    int
	failWith func(attempt int) error
	execute  func(ctx context.Context, job *queue.Job) error
}

func (h *stubHandler) Prepare(ctx context.Context, job *queue.Job) error {
	job.ErrorMessage = ""
	return nil
}

func (h *stubHandler) Execute(ctx context.Context, job *queue.Job) error {
	h.mu.Lock()
	h.calls++
	attempt := h.calls
	h.mu.Unlock()

	if h.execute != nil {
		return h.execute(ctx, job)
	}
	if h.failWith != nil {
		if err := h.failWith(attempt); err != nil {
			return err
		}
	}
	job.ResultPath = "/cache/" + job.CacheKey + "_synced.srt"
	return nil
}

func (h *stubHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("stub")
}

func (h *stubHandler) executions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
}

func (n *recordingNotifier) NotifySyncCompleted(ctx context.Context, cacheKey string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, cacheKey)
	return nil
}

func (n *recordingNotifier) NotifySyncFailed(ctx context.Context, cacheKey, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, cacheKey)
	return nil
}

func (n *recordingNotifier) NotifyError(ctx context.Context, err error, context string) error {
	return nil
}

func (n *recordingNotifier) TestNotification(ctx context.Context) error { return nil }

func (n *recordingNotifier) completedKeys() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.completed...)
}

func (n *recordingNotifier) failedKeys() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.failed...)
}

func newTestManager(t *testing.T, handler stage.Handler, notifier *recordingNotifier) (*workflow.Manager, *queue.Store, *config.Config) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Workflow.Workers = 1
	cfg.Workflow.QueuePollInterval = 0
	cfg.Workflow.ErrorRetryInterval = 0
	cfg.Workflow.HeartbeatInterval = 1
	cfg.Workflow.HeartbeatTimeout = 30
	cfg.Sync.JobTimeout = 30

	store := testsupport.MustOpenStore(t, cfg)
	manager := workflow.NewManagerWithNotifier(cfg, store, handler, logging.NewNop(), notifier)
	return manager, store, cfg
}

func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Job {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetByID(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, job)
		if job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %d never reached status %s", id, want)
	return nil
}

func TestManagerProcessesPendingJob(t *testing.T) {
	handler := &stubHandler{}
	notifier := &recordingNotifier{}
	manager, store, _ := newTestManager(t, handler, notifier)

	job := testsupport.EnqueueMovie(t, store, "tt0133093")

	require.NoError(t, manager.Start(context.Background()))
	defer manager.Stop()

	done := waitForStatus(t, store, job.ID, queue.StatusCompleted)
	assert.Equal(t, "/cache/tt0133093_synced.srt", done.ResultPath)
	assert.Equal(t, 1, done.Attempts)
	assert.Empty(t, done.ErrorMessage)
	assert.Nil(t, done.LastHeartbeat)
	assert.Equal(t, []string{"tt0133093"}, notifier.completedKeys())
}

func TestManagerRetriesRetriableFailures(t *testing.T) {
	handler := &stubHandler{
		failWith: func(attempt int) error {
			if attempt == 1 {
				return services.Wrap(services.ErrExternalTool, "sync", "align", "ffsubsync exited 1", nil)
			}
			return nil
		},
	}
	notifier := &recordingNotifier{}
	manager, store, _ := newTestManager(t, handler, notifier)

	job := testsupport.EnqueueMovie(t, store, "tt0903747")

	require.NoError(t, manager.Start(context.Background()))
	defer manager.Stop()

	done := waitForStatus(t, store, job.ID, queue.StatusCompleted)
	assert.Equal(t, 2, done.Attempts)
	assert.Equal(t, 2, handler.executions())
	assert.Empty(t, notifier.failedKeys())
}

func TestManagerTerminalFailureDoesNotRetry(t *testing.T) {
	handler := &stubHandler{
		failWith: func(int) error {
			return services.Wrap(services.ErrNotFound, "sync", "search", "no subtitles found", nil)
		},
	}
	notifier := &recordingNotifier{}
	manager, store, _ := newTestManager(t, handler, notifier)

	job := testsupport.EnqueueMovie(t, store, "tt0111161")

	require.NoError(t, manager.Start(context.Background()))
	defer manager.Stop()

	done := waitForStatus(t, store, job.ID, queue.StatusFailed)
	assert.Equal(t, 1, done.Attempts)
	assert.Equal(t, 1, handler.executions())
	assert.Contains(t, done.ErrorMessage, "no subtitles found")
	assert.Equal(t, []string{"tt0111161"}, notifier.failedKeys())
}

func TestManagerFailsAfterMaxAttempts(t *testing.T) {
	handler := &stubHandler{
		failWith: func(int) error {
			return services.Wrap(services.ErrTransient, "sync", "download", "download failed", nil)
		},
	}
	notifier := &recordingNotifier{}
	manager, store, cfg := newTestManager(t, handler, notifier)
	cfg.Sync.MaxAttempts = 2
	manager = workflow.NewManagerWithNotifier(cfg, store, handler, logging.NewNop(), notifier)

	job := testsupport.EnqueueMovie(t, store, "tt0068646")

	require.NoError(t, manager.Start(context.Background()))
	defer manager.Stop()

	done := waitForStatus(t, store, job.ID, queue.StatusFailed)
	assert.Equal(t, 2, done.Attempts)
	assert.Equal(t, 2, handler.executions())
	assert.Equal(t, []string{"tt0068646"}, notifier.failedKeys())
}

func TestManagerStartStop(t *testing.T) {
	handler := &stubHandler{}
	notifier := &recordingNotifier{}
	manager, _, _ := newTestManager(t, handler, notifier)

	require.NoError(t, manager.Start(context.Background()))
	assert.True(t, manager.Running())
	assert.Error(t, manager.Start(context.Background()), "second start should fail")

	manager.Stop()
	assert.False(t, manager.Running())

	// Stop is idempotent.
	manager.Stop()
}

func TestManagerHealth(t *testing.T) {
	handler := &stubHandler{}
	notifier := &recordingNotifier{}
	manager, store, _ := newTestManager(t, handler, notifier)

	testsupport.EnqueueMovie(t, store, "tt0133093")

	health, err := manager.Health(context.Background())
	require.NoError(t, err)
	assert.False(t, health.Running)
	assert.Equal(t, 1, health.Queue.Pending)
	assert.True(t, health.Stage.Ready)
}

func TestManagerConcurrentWorkersProcessAllJobs(t *testing.T) {
	handler := &stubHandler{}
	notifier := &recordingNotifier{}

	cfg := testsupport.NewConfig(t)
	cfg.Workflow.Workers = 3
	cfg.Workflow.QueuePollInterval = 0
	cfg.Workflow.ErrorRetryInterval = 0
	cfg.Workflow.HeartbeatInterval = 1
	cfg.Workflow.HeartbeatTimeout = 30
	cfg.Sync.JobTimeout = 30

	store := testsupport.MustOpenStore(t, cfg)
	manager := workflow.NewManagerWithNotifier(cfg, store, handler, logging.NewNop(), notifier)

	ids := []string{"tt0000001", "tt0000002", "tt0000003", "tt0000004", "tt0000005"}
	jobs := make([]*queue.Job, 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, testsupport.EnqueueMovie(t, store, id))
	}

	require.NoError(t, manager.Start(context.Background()))
	defer manager.Stop()

	for _, job := range jobs {
		done := waitForStatus(t, store, job.ID, queue.StatusCompleted)
		assert.Equal(t, 1, done.Attempts, "job %s processed exactly once", done.CacheKey)
	}
	assert.Equal(t, len(ids), handler.executions())
}
