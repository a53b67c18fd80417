package addon

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"subsync/internal/api"
	"subsync/internal/language"
	"subsync/internal/logging"
	"subsync/internal/queue"
	"subsync/internal/subtitles"
)

// subtitleEntry is one result in a Stremio subtitles response.
type subtitleEntry struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Lang   string `json:"lang"`
	Format string `json:"format"`
}

type subtitlesResponse struct {
	Subtitles []subtitleEntry `json:"subtitles"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "%s is running\n", s.cfg.Addon.Name)
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manifest)
}

// handleSubtitles answers Stremio subtitle queries. A cached result is
// returned immediately; anything else schedules a background sync and
// returns an empty list so the player never blocks on the pipeline.
func (s *Server) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithContext(r.Context(), s.logger)

	rawID := r.PathValue("id")
	if extra := r.PathValue("extra"); extra == "" {
		rawID = strings.TrimSuffix(rawID, ".json")
	}

	imdbID, season, episode, err := subtitles.ParseStremioID(rawID)
	if err != nil {
		logger.Warn("unparseable stremio id",
			logging.String("id", rawID),
			logging.Error(err),
		)
		s.metrics.ObserveSubtitleRequest(SubtitleResultInvalid)
		writeJSON(w, http.StatusOK, subtitlesResponse{Subtitles: []subtitleEntry{}})
		return
	}

	cacheKey := subtitles.CacheKey(imdbID, season, episode)
	if path, ok := s.resolver.CachedResultPath(cacheKey); ok {
		s.metrics.ObserveSubtitleRequest(SubtitleResultCached)
		writeJSON(w, http.StatusOK, subtitlesResponse{Subtitles: []subtitleEntry{{
			ID:     "autosync_" + cacheKey,
			URL:    s.baseURL(r) + "/static_subs/" + filepath.Base(path),
			Lang:   language.ToStremioCode(s.cfg.OpenSubtitles.TargetLanguage),
			Format: "srt",
		}}})
		return
	}

	job, created, err := s.store.Enqueue(r.Context(), queue.EnqueueRequest{
		IMDBID:            imdbID,
		Season:            season,
		Episode:           episode,
		ReferenceLanguage: s.cfg.OpenSubtitles.ReferenceLanguage,
		TargetLanguage:    s.cfg.OpenSubtitles.TargetLanguage,
		CacheKey:          cacheKey,
	})
	if err != nil {
		logger.Error("enqueue from subtitle request failed",
			logging.String(logging.FieldCacheKey, cacheKey),
			logging.Error(err),
		)
		s.metrics.ObserveSubtitleRequest(SubtitleResultError)
		writeJSON(w, http.StatusOK, subtitlesResponse{Subtitles: []subtitleEntry{}})
		return
	}

	if created {
		s.metrics.ObserveSubtitleRequest(SubtitleResultQueued)
		logger.Info("sync scheduled from subtitle request",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.String(logging.FieldCacheKey, cacheKey),
		)
	} else {
		s.metrics.ObserveSubtitleRequest(SubtitleResultPending)
	}
	writeJSON(w, http.StatusOK, subtitlesResponse{Subtitles: []subtitleEntry{}})
}

// handleStaticSub serves synchronized subtitle files from the cache
// directory. The file name must be a bare name; traversal is rejected.
func (s *Server) handleStaticSub(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		writeError(w, http.StatusBadRequest, "invalid file name")
		return
	}

	path := filepath.Join(s.cfg.Paths.CacheDir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "subtitle not found")
		return
	}

	w.Header().Set("Content-Type", "application/x-subrip")
	http.ServeFile(w, r, path)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.ErrorResponse{Error: message})
}
