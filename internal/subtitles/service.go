package subtitles

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"log/slog"

	"subsync/internal/config"
	"subsync/internal/fileutil"
	"subsync/internal/logging"
	"subsync/internal/queue"
	"subsync/internal/services"
	"subsync/internal/subtitles/opensubtitles"
	"subsync/internal/textutil"
)

// Source abstracts the OpenSubtitles client for testing.
type Source interface {
	Search(ctx context.Context, req opensubtitles.SearchRequest) (opensubtitles.SearchResponse, error)
	Download(ctx context.Context, fileID int64, opts opensubtitles.DownloadOptions) (opensubtitles.DownloadResult, error)
}

// ProgressFunc receives stage transitions while a job is processed.
type ProgressFunc func(status queue.Status, message string)

// Service drives the sync pipeline for one job at a time: search both
// languages, download the winning candidates, align the target against the
// reference, and publish the synced file into the cache directory.
type Service struct {
	cfg          *config.Config
	source       Source
	payloadCache *opensubtitles.Cache
	aligner      *FFSubsync
	logger       *slog.Logger

	pacingMu    sync.Mutex
	minInterval time.Duration
	lastCall    time.Time
}

// NewService constructs the sync service.
func NewService(cfg *config.Config, source Source, payloadCache *opensubtitles.Cache, aligner *FFSubsync, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	if aligner == nil {
		aligner = NewFFSubsync(cfg.Sync.FFSubsyncBinary)
	}
	return &Service{
		cfg:          cfg,
		source:       source,
		payloadCache: payloadCache,
		aligner:      aligner,
		logger:       logger.With(logging.String(logging.FieldComponent, "subtitles")),
		minInterval:  opensubtitles.MinInterval,
	}
}

// WithMinInterval overrides the pacing interval between API calls (for testing).
func (s *Service) WithMinInterval(d time.Duration) {
	s.pacingMu.Lock()
	s.minInterval = d
	s.pacingMu.Unlock()
}

// waitForPacingWindow blocks until the shared inter-call interval has
// elapsed, then claims the window. Workers share one Service, so the pacing
// state is guarded.
func (s *Service) waitForPacingWindow(ctx context.Context) error {
	for {
		s.pacingMu.Lock()
		wait := s.minInterval - time.Since(s.lastCall)
		if wait <= 0 {
			s.lastCall = time.Now()
			s.pacingMu.Unlock()
			return nil
		}
		s.pacingMu.Unlock()
		if err := opensubtitles.SleepWithContext(ctx, wait); err != nil {
			return err
		}
	}
}

// CachedResultPath returns the published path for a cache key when the synced
// file already exists. Published files are immutable: once written they are
// served as-is.
func (s *Service) CachedResultPath(cacheKey string) (string, bool) {
	path := filepath.Join(s.cfg.Paths.CacheDir, CachedFileName(cacheKey))
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return "", false
	}
	return path, true
}

// Process runs the full pipeline for a job and returns the published path.
// The progress callback is invoked before each stage so the caller can
// persist status transitions.
func (s *Service) Process(ctx context.Context, job *queue.Job, progress ProgressFunc) (string, error) {
	if job == nil {
		return "", services.Wrap(services.ErrValidation, "sync", "process", "job is nil", nil)
	}
	if progress == nil {
		progress = func(queue.Status, string) {}
	}
	log := s.logger.With(
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldCacheKey, job.CacheKey),
	)

	if path, ok := s.CachedResultPath(job.CacheKey); ok {
		log.Info("synced subtitle already cached", logging.String("path", path))
		return path, nil
	}

	progress(queue.StatusSearching, "Searching OpenSubtitles")
	reference, target, err := s.search(ctx, job, log)
	if err != nil {
		return "", err
	}

	progress(queue.StatusDownloading, "Downloading subtitle candidates")
	refPath, targetPath, err := s.download(ctx, job, reference, target, log)
	defer fileutil.RemoveAllQuiet(refPath, targetPath)
	if err != nil {
		return "", err
	}

	progress(queue.StatusSyncing, "Aligning target against reference")
	finalPath, err := s.align(ctx, job, refPath, targetPath, log)
	if err != nil {
		return "", err
	}

	log.Info("subtitle sync completed", logging.String("path", finalPath))
	return finalPath, nil
}

func (s *Service) search(ctx context.Context, job *queue.Job, log *slog.Logger) (opensubtitles.Subtitle, opensubtitles.Subtitle, error) {
	var zero opensubtitles.Subtitle

	reference, err := s.searchLanguage(ctx, job, s.cfg.OpenSubtitles.ReferenceLanguage, "")
	if err != nil {
		return zero, zero, err
	}
	target, err := s.searchLanguage(ctx, job, s.cfg.OpenSubtitles.TargetLanguage, reference.Release)
	if err != nil {
		return zero, zero, err
	}

	log.Info("subtitle candidates selected",
		logging.Int64("reference_file_id", reference.FileID),
		logging.Int64("target_file_id", target.FileID),
		logging.Int("reference_downloads", reference.Downloads),
		logging.Int("target_downloads", target.Downloads),
	)
	return reference, target, nil
}

func (s *Service) searchLanguage(ctx context.Context, job *queue.Job, language, referenceRelease string) (opensubtitles.Subtitle, error) {
	req := opensubtitles.SearchRequest{
		IMDBID:    job.IMDBID,
		Languages: []string{language},
		Season:    job.Season,
		Episode:   job.Episode,
	}

	var resp opensubtitles.SearchResponse
	err := s.callWithRetry(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = s.source.Search(ctx, req)
		return callErr
	})
	if err != nil {
		return opensubtitles.Subtitle{}, services.Wrap(services.ErrExternalTool, "searching", "opensubtitles search", fmt.Sprintf("search for %s failed", language), err)
	}

	best, ok := pickBest(resp.Subtitles, referenceRelease)
	if !ok {
		return opensubtitles.Subtitle{}, services.Wrap(services.ErrNotFound, "searching", "opensubtitles search", fmt.Sprintf("no %s subtitles found for %s", language, job.CacheKey), nil)
	}
	return best, nil
}

// releaseMatchThreshold is the minimum release-name similarity that lets a
// less popular candidate win over the download-count ordering.
const releaseMatchThreshold = 0.5

// pickBest selects a usable candidate. Results arrive ordered by download
// count; AI translations are skipped unless nothing else exists. When the
// reference subtitle's release name is known, a candidate from the same rip
// is preferred because it shares the reference timing.
func pickBest(candidates []opensubtitles.Subtitle, referenceRelease string) (opensubtitles.Subtitle, bool) {
	refFingerprint := textutil.NewFingerprint(referenceRelease)

	var fallback opensubtitles.Subtitle
	var haveFallback bool
	var bestMatch opensubtitles.Subtitle
	bestScore := 0.0

	for _, candidate := range candidates {
		if candidate.AITranslated {
			continue
		}
		if !haveFallback {
			fallback = candidate
			haveFallback = true
		}
		if refFingerprint == nil {
			break
		}
		score := textutil.CosineSimilarity(refFingerprint, textutil.NewFingerprint(candidate.Release))
		if score > bestScore {
			bestScore = score
			bestMatch = candidate
		}
	}

	if bestScore >= releaseMatchThreshold {
		return bestMatch, true
	}
	if haveFallback {
		return fallback, true
	}
	if len(candidates) > 0 {
		return candidates[0], true
	}
	return opensubtitles.Subtitle{}, false
}

func (s *Service) download(ctx context.Context, job *queue.Job, reference, target opensubtitles.Subtitle, log *slog.Logger) (string, string, error) {
	refData, err := s.fetchPayload(ctx, job, reference)
	if err != nil {
		return "", "", services.Wrap(services.ErrExternalTool, "downloading", "fetch reference", "reference subtitle download failed", err)
	}
	targetData, err := s.fetchPayload(ctx, job, target)
	if err != nil {
		return "", "", services.Wrap(services.ErrExternalTool, "downloading", "fetch target", "target subtitle download failed", err)
	}

	if err := os.MkdirAll(s.cfg.Paths.TempDir, 0o777); err != nil {
		return "", "", services.Wrap(services.ErrConfiguration, "downloading", "ensure temp dir", "temp directory unavailable", err)
	}

	refPath := filepath.Join(s.cfg.Paths.TempDir, fmt.Sprintf("%s_ref_%s.srt", job.CacheKey, s.cfg.OpenSubtitles.ReferenceLanguage))
	targetPath := filepath.Join(s.cfg.Paths.TempDir, fmt.Sprintf("%s_target_%s.srt", job.CacheKey, s.cfg.OpenSubtitles.TargetLanguage))

	if err := fileutil.WriteFileAtomic(refPath, refData, 0o644); err != nil {
		return "", "", services.Wrap(services.ErrTransient, "downloading", "write reference", "write reference temp file", err)
	}
	if err := fileutil.WriteFileAtomic(targetPath, targetData, 0o644); err != nil {
		return refPath, "", services.Wrap(services.ErrTransient, "downloading", "write target", "write target temp file", err)
	}

	log.Debug("subtitle payloads staged",
		logging.String("reference", refPath),
		logging.String("target", targetPath),
	)
	return refPath, targetPath, nil
}

func (s *Service) fetchPayload(ctx context.Context, job *queue.Job, subtitle opensubtitles.Subtitle) ([]byte, error) {
	if s.payloadCache != nil {
		cached, ok, err := s.payloadCache.Load(subtitle.FileID)
		if err != nil {
			s.logger.Warn("payload cache read failed", logging.Error(err))
		} else if ok {
			return cached.Data, nil
		}
	}

	var result opensubtitles.DownloadResult
	err := s.callWithRetry(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = s.source.Download(ctx, subtitle.FileID, opensubtitles.DownloadOptions{Format: "srt"})
		return callErr
	})
	if err != nil {
		return nil, err
	}

	if s.payloadCache != nil {
		entry := opensubtitles.CacheEntry{
			FileID:      subtitle.FileID,
			Language:    subtitle.Language,
			FileName:    result.FileName,
			DownloadURL: result.DownloadURL,
			IMDBID:      job.IMDBID,
			Season:      job.Season,
			Episode:     job.Episode,
		}
		if _, err := s.payloadCache.Store(entry, result.Data); err != nil {
			s.logger.Warn("payload cache write failed", logging.Error(err))
		}
	}
	return result.Data, nil
}

func (s *Service) align(ctx context.Context, job *queue.Job, refPath, targetPath string, log *slog.Logger) (string, error) {
	stagedPath := filepath.Join(s.cfg.Paths.TempDir, CachedFileName(job.CacheKey))
	defer fileutil.RemoveAllQuiet(stagedPath)

	aligned := false
	if s.aligner.Available() {
		if err := s.aligner.Align(ctx, refPath, targetPath, stagedPath); err != nil {
			if ctx.Err() != nil {
				return "", err
			}
			log.Warn("ffsubsync failed, using built-in aligner", logging.Error(err))
		} else {
			aligned = true
		}
	} else {
		log.Warn("ffsubsync binary not found, using built-in aligner",
			logging.String("binary", s.aligner.Binary()))
	}

	if !aligned {
		matches, err := AlignToReference(refPath, targetPath, stagedPath)
		if err != nil {
			return "", services.Wrap(services.ErrTransient, "syncing", "builtin align", "fallback alignment failed", err)
		}
		log.Info("built-in aligner applied", logging.Int("matched_cues", matches))
	}

	if issues := ValidateSRTContent(stagedPath); len(issues) > 0 {
		return "", services.Wrap(services.ErrValidation, "syncing", "validate output", strings.Join(issues, ", "), nil)
	}

	if err := os.MkdirAll(s.cfg.Paths.CacheDir, 0o777); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "syncing", "ensure cache dir", "cache directory unavailable", err)
	}
	finalPath := filepath.Join(s.cfg.Paths.CacheDir, CachedFileName(job.CacheKey))
	if err := fileutil.MoveFile(stagedPath, finalPath); err != nil {
		return "", services.Wrap(services.ErrTransient, "syncing", "publish", "move synced file into cache", err)
	}
	return finalPath, nil
}

// callWithRetry paces OpenSubtitles API calls and retries transient failures
// with exponential backoff.
func (s *Service) callWithRetry(ctx context.Context, call func(ctx context.Context) error) error {
	backoff := opensubtitles.InitialBackoff
	var lastErr error
	for attempt := 0; attempt <= opensubtitles.MaxRateRetries; attempt++ {
		if err := s.waitForPacingWindow(ctx); err != nil {
			return err
		}

		lastErr = call(ctx)
		if lastErr == nil {
			return nil
		}
		if !opensubtitles.IsRetriable(lastErr) {
			return lastErr
		}
		if err := opensubtitles.SleepWithContext(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
		if backoff > opensubtitles.MaxBackoff {
			backoff = opensubtitles.MaxBackoff
		}
	}
	return lastErr
}
