package addon

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"subsync/internal/api"
	"subsync/internal/deps"
	"subsync/internal/logging"
	"subsync/internal/queue"
	"subsync/internal/subtitles"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := s.queueStats(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "queue stats: "+err.Error())
		return
	}

	status := api.DaemonStatus{
		Running:      true,
		PID:          os.Getpid(),
		Version:      s.version,
		QueueDBPath:  s.store.Path(),
		LockFilePath: s.lockFilePath,
	}
	if s.manager != nil {
		health, err := s.manager.Health(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "workflow health: "+err.Error())
			return
		}
		status.Workflow = api.FromWorkflowHealth(health, stats)
	} else {
		status.Workflow = api.WorkflowStatus{QueueStats: api.MergeQueueStats(stats)}
	}

	for _, dep := range deps.CheckBinaries(deps.Requirements(s.cfg)) {
		status.Dependencies = append(status.Dependencies, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleQueueList(w http.ResponseWriter, r *http.Request) {
	var statuses []queue.Status
	for _, raw := range r.URL.Query()["status"] {
		status, ok := queue.ParseStatus(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(raw))
			return
		}
		statuses = append(statuses, status)
	}

	jobs, err := s.store.List(r.Context(), statuses...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, api.QueueListResponse{Jobs: api.FromJobs(jobs)})
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req api.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !subtitles.ValidIMDBID(req.IMDBID) {
		writeError(w, http.StatusBadRequest, "invalid imdb id")
		return
	}
	if (req.Season > 0) != (req.Episode > 0) {
		writeError(w, http.StatusBadRequest, "season and episode must be provided together")
		return
	}

	cacheKey := subtitles.CacheKey(req.IMDBID, req.Season, req.Episode)
	job, created, err := s.store.Enqueue(r.Context(), queue.EnqueueRequest{
		IMDBID:            req.IMDBID,
		Season:            req.Season,
		Episode:           req.Episode,
		ReferenceLanguage: s.cfg.OpenSubtitles.ReferenceLanguage,
		TargetLanguage:    s.cfg.OpenSubtitles.TargetLanguage,
		CacheKey:          cacheKey,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		logging.WithContext(r.Context(), s.logger).Info("sync scheduled via API",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.String(logging.FieldCacheKey, cacheKey),
		)
	}
	writeJSON(w, status, api.EnqueueResponse{Job: api.FromJob(job), Created: created})
}

func (s *Server) handleQueueShow(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, api.QueueJobResponse{Job: api.FromJob(job)})
}

func (s *Server) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	removed, err := s.store.Remove(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, api.QueueMutationResponse{Affected: 1})
}

func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.queueStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, api.QueueStatsResponse{Counts: api.MergeQueueStats(stats)})
}

func (s *Server) handleQueueClear(w http.ResponseWriter, r *http.Request) {
	var (
		affected int64
		err      error
	)
	switch scope := r.URL.Query().Get("scope"); scope {
	case "completed":
		affected, err = s.store.ClearCompleted(r.Context())
	case "failed":
		affected, err = s.store.ClearFailed(r.Context())
	case "all":
		affected, err = s.store.Clear(r.Context())
	default:
		writeError(w, http.StatusBadRequest, "scope must be completed, failed, or all")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, api.QueueMutationResponse{Affected: affected})
}

func (s *Server) handleQueueRetry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	affected, err := s.store.RetryFailed(r.Context(), req.IDs...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, api.QueueMutationResponse{Affected: affected})
}

func (s *Server) handleQueueReset(w http.ResponseWriter, r *http.Request) {
	affected, err := s.store.ResetStuckProcessing(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, api.QueueMutationResponse{Affected: affected})
}

func (s *Server) handleNotificationTest(w http.ResponseWriter, r *http.Request) {
	if err := s.notifier.TestNotification(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
