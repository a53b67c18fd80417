package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"subsync/internal/addon"
	"subsync/internal/config"
	"subsync/internal/logging"
	"subsync/internal/notifications"
	"subsync/internal/queue"
	"subsync/internal/subtitles"
	"subsync/internal/subtitles/opensubtitles"
	"subsync/internal/workflow"
)

const shutdownGrace = 10 * time.Second

// Daemon coordinates background sync processing and the addon HTTP server,
// and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	server   *addon.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with fully wired dependencies: the OpenSubtitles
// client, payload cache, sync service, workflow manager, and addon server.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, version string) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "subsyncd.lock")

	client, err := opensubtitles.New(opensubtitles.Config{
		APIKey:    cfg.OpenSubtitles.APIKey,
		UserAgent: cfg.OpenSubtitles.UserAgent,
		UserToken: cfg.OpenSubtitles.UserToken,
		BaseURL:   cfg.OpenSubtitles.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("opensubtitles client: %w", err)
	}
	payloadCache, err := opensubtitles.NewCache(cfg.OpenSubtitles.PayloadCacheDir, logger)
	if err != nil {
		return nil, fmt.Errorf("payload cache: %w", err)
	}

	aligner := subtitles.NewFFSubsync(cfg.Sync.FFSubsyncBinary)
	service := subtitles.NewService(cfg, client, payloadCache, aligner, logger)
	notifier := notifications.NewService(cfg)

	syncStage := subtitles.NewStage(store, service, logger)
	manager := workflow.NewManagerWithNotifier(cfg, store, syncStage, logger, notifier)

	metrics := addon.NewMetrics(store)
	manager.SetObserver(metrics)

	server := addon.New(cfg, store, service, manager, notifier, logger, addon.Options{
		LockFilePath: lockPath,
		Version:      version,
		Metrics:      metrics,
	})

	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: manager,
		server:   server,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the workflow and HTTP server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another subsync daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.workflow.Start(runCtx); err != nil {
		d.releaseLock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.server.Start(runCtx); err != nil {
		d.workflow.Stop()
		d.releaseLock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start addon server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("subsync daemon started",
		logging.String("bind", d.server.Addr()),
		logging.String("lock", d.lockPath),
	)
	return nil
}

// Stop shuts down the HTTP server and workflow, then releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := d.server.Stop(shutdownCtx); err != nil {
		d.logger.Warn("addon server shutdown", logging.Error(err))
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	d.releaseLock()
	d.running.Store(false)
	d.logger.Info("subsync daemon stopped")
}

// Close stops the daemon and closes the queue store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon has started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Addr returns the address the addon server is bound to.
func (d *Daemon) Addr() string {
	return d.server.Addr()
}

// LockFilePath returns the daemon instance lock location.
func (d *Daemon) LockFilePath() string {
	return d.lockPath
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}
