package addon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subsync/internal/addon"
	"subsync/internal/config"
	"subsync/internal/logging"
	"subsync/internal/notifications"
	"subsync/internal/queue"
	"subsync/internal/subtitles"
	"subsync/internal/testsupport"
)

type stubResolver struct {
	paths map[string]string
}

func (r *stubResolver) CachedResultPath(cacheKey string) (string, bool) {
	path, ok := r.paths[cacheKey]
	return path, ok
}

type addonHarness struct {
	server   *httptest.Server
	store    *queue.Store
	cfg      *config.Config
	resolver *stubResolver
}

func newHarness(t *testing.T) *addonHarness {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	require.NoError(t, cfg.EnsureDirectories())
	store := testsupport.MustOpenStore(t, cfg)
	resolver := &stubResolver{paths: map[string]string{}}

	srv := addon.New(cfg, store, resolver, nil, notifications.NewService(cfg), logging.NewNop(), addon.Options{Version: "test"})
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)

	return &addonHarness{server: ts, store: store, cfg: cfg, resolver: resolver}
}

func (h *addonHarness) getJSON(t *testing.T, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(h.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestManifestEndpoint(t *testing.T) {
	h := newHarness(t)

	var manifest addon.Manifest
	resp := h.getJSON(t, "/manifest.json", &manifest)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, h.cfg.Addon.ID, manifest.ID)
	assert.Equal(t, []string{"subtitles"}, manifest.Resources)
	assert.Equal(t, []string{"movie", "series"}, manifest.Types)
	assert.Equal(t, []string{"tt"}, manifest.IDPrefixes)
	assert.NotNil(t, manifest.Catalogs)
}

func TestSubtitlesCacheHitReturnsEntry(t *testing.T) {
	h := newHarness(t)

	cached := filepath.Join(h.cfg.Paths.CacheDir, "tt0903747_S1E2_synced.srt")
	require.NoError(t, os.WriteFile(cached, []byte("1\n00:00:01,000 --> 00:00:02,000\nhi\n"), 0o644))
	h.resolver.paths["tt0903747_S1E2"] = cached

	var payload struct {
		Subtitles []struct {
			ID     string `json:"id"`
			URL    string `json:"url"`
			Lang   string `json:"lang"`
			Format string `json:"format"`
		} `json:"subtitles"`
	}
	resp := h.getJSON(t, "/subtitles/series/tt0903747:1:2/anything.json", &payload)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, payload.Subtitles, 1)
	entry := payload.Subtitles[0]
	assert.Equal(t, "autosync_tt0903747_S1E2", entry.ID)
	assert.Equal(t, h.server.URL+"/static_subs/tt0903747_S1E2_synced.srt", entry.URL)
	assert.Equal(t, "pob", entry.Lang)
	assert.Equal(t, "srt", entry.Format)

	// No job should have been scheduled for a cache hit.
	jobs, err := h.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestSubtitlesCacheMissSchedulesJob(t *testing.T) {
	h := newHarness(t)

	var payload struct {
		Subtitles []any `json:"subtitles"`
	}
	resp := h.getJSON(t, "/subtitles/movie/tt0133093.json", &payload)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, payload.Subtitles)

	job, err := h.store.GetByCacheKey(context.Background(), "tt0133093")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, queue.StatusPending, job.Status)
	assert.Equal(t, h.cfg.OpenSubtitles.ReferenceLanguage, job.ReferenceLanguage)
	assert.Equal(t, h.cfg.OpenSubtitles.TargetLanguage, job.TargetLanguage)
}

func TestSubtitlesRepeatRequestDeduplicates(t *testing.T) {
	h := newHarness(t)

	h.getJSON(t, "/subtitles/series/tt0903747:1:2/x.json", nil)
	h.getJSON(t, "/subtitles/series/tt0903747:1:2/x.json", nil)

	jobs, err := h.store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
	assert.Equal(t, subtitles.CacheKey("tt0903747", 1, 2), jobs[0].CacheKey)
}

func TestSubtitlesInvalidIDReturnsEmptyWithoutJob(t *testing.T) {
	h := newHarness(t)

	var payload struct {
		Subtitles []any `json:"subtitles"`
	}
	resp := h.getJSON(t, "/subtitles/movie/notanid.json", &payload)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, payload.Subtitles)

	jobs, err := h.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestStaticSubsServesCachedFile(t *testing.T) {
	h := newHarness(t)

	content := "1\n00:00:01,000 --> 00:00:02,000\nola\n"
	require.NoError(t, os.WriteFile(filepath.Join(h.cfg.Paths.CacheDir, "tt1_synced.srt"), []byte(content), 0o644))

	resp, err := http.Get(h.server.URL + "/static_subs/tt1_synced.srt")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-subrip", resp.Header.Get("Content-Type"))
}

func TestStaticSubsRejectsTraversal(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.server.URL + "/static_subs/..%2Fsecret.srt")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}

func TestStaticSubsMissingFile(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.server.URL + "/static_subs/nope_synced.srt")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)

	var payload map[string]string
	resp := h.getJSON(t, "/healthz", &payload)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", payload["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)

	// Generate one subtitle request so the counter exists.
	h.getJSON(t, "/subtitles/movie/tt0133093.json", nil)

	resp, err := http.Get(h.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCorrelationHeaderEchoed(t *testing.T) {
	h := newHarness(t)

	req, err := http.NewRequest(http.MethodGet, h.server.URL+"/manifest.json", nil)
	require.NoError(t, err)
	req.Header.Set("X-Correlation-Id", "abc-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get("X-Correlation-Id"))
}
