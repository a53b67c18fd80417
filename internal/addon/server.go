package addon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"subsync/internal/config"
	"subsync/internal/logging"
	"subsync/internal/notifications"
	"subsync/internal/queue"
	"subsync/internal/workflow"
)

// Resolver reports whether a synchronized subtitle already exists for a
// cache key. The sync service implements it.
type Resolver interface {
	CachedResultPath(cacheKey string) (string, bool)
}

// Options carries optional server wiring.
type Options struct {
	// LockFilePath is surfaced in /api/status.
	LockFilePath string
	// Version is the daemon build version reported by /api/status.
	Version string
	// Metrics overrides the default collector set (used in tests).
	Metrics *Metrics
}

// Server hosts the Stremio addon routes and the management API.
type Server struct {
	cfg      *config.Config
	store    *queue.Store
	resolver Resolver
	manager  *workflow.Manager
	notifier notifications.Service
	logger   *slog.Logger
	metrics  *Metrics
	manifest Manifest

	lockFilePath string
	version      string

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// New constructs the addon server.
func New(cfg *config.Config, store *queue.Store, resolver Resolver, manager *workflow.Manager, notifier notifications.Service, logger *slog.Logger, opts Options) *Server {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(store)
	}
	return &Server{
		cfg:          cfg,
		store:        store,
		resolver:     resolver,
		manager:      manager,
		notifier:     notifier,
		logger:       logging.NewComponentLogger(logger, "addon"),
		metrics:      metrics,
		manifest:     BuildManifest(cfg),
		lockFilePath: opts.LockFilePath,
		version:      opts.Version,
	}
}

// Routes builds the HTTP handler tree.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	s.handle(mux, "GET /{$}", "index", s.handleIndex)
	s.handle(mux, "GET /manifest.json", "manifest", s.handleManifest)
	s.handle(mux, "GET /subtitles/{type}/{id}", "subtitles", s.handleSubtitles)
	s.handle(mux, "GET /subtitles/{type}/{id}/{extra}", "subtitles", s.handleSubtitles)
	s.handle(mux, "GET /static_subs/{file}", "static_subs", s.handleStaticSub)

	s.handle(mux, "GET /api/status", "api_status", s.handleStatus)
	s.handle(mux, "GET /api/queue", "api_queue_list", s.handleQueueList)
	s.handle(mux, "POST /api/queue", "api_queue_enqueue", s.handleEnqueue)
	s.handle(mux, "DELETE /api/queue", "api_queue_clear", s.handleQueueClear)
	s.handle(mux, "GET /api/queue/stats", "api_queue_stats", s.handleQueueStats)
	s.handle(mux, "POST /api/queue/retry", "api_queue_retry", s.handleQueueRetry)
	s.handle(mux, "POST /api/queue/reset", "api_queue_reset", s.handleQueueReset)
	s.handle(mux, "GET /api/queue/{id}", "api_queue_show", s.handleQueueShow)
	s.handle(mux, "DELETE /api/queue/{id}", "api_queue_remove", s.handleQueueRemove)
	s.handle(mux, "POST /api/notifications/test", "api_notifications_test", s.handleNotificationTest)

	s.handle(mux, "GET /healthz", "healthz", s.handleHealthz)
	mux.Handle("GET /metrics", s.metrics.Handler())

	return mux
}

func (s *Server) handle(mux *http.ServeMux, pattern, route string, handler http.HandlerFunc) {
	mux.Handle(pattern, middleware(s.logger, s.metrics, route, handler))
}

// Start binds the configured address and serves in the background. The write
// timeout bounds every request, matching the fixed per-request budget the
// sync pipeline is allowed.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer != nil {
		return errors.New("addon server already running")
	}

	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", s.cfg.Paths.Bind)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.cfg.Paths.Bind, err)
	}

	writeTimeout := time.Duration(s.cfg.Sync.RequestTimeout) * time.Second
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Minute
	}
	server := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	s.httpServer = server
	s.listener = listener

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("addon server error", logging.Error(err))
		}
	}()

	s.logger.Info("addon server started", logging.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound listener address, or empty when not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	server := s.httpServer
	s.httpServer = nil
	s.listener = nil
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("addon server shutdown: %w", err)
	}
	s.logger.Info("addon server stopped")
	return nil
}

// baseURL resolves the public URL subtitle links are built from. The
// configured public URL wins; otherwise the request host is used.
func (s *Server) baseURL(r *http.Request) string {
	if url := s.cfg.Addon.PublicURL; url != "" {
		return trimTrailingSlash(url)
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

func (s *Server) queueStats(ctx context.Context) (map[queue.Status]int, error) {
	return s.store.Stats(ctx)
}
