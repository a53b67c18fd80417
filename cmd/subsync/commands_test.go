package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subsync/internal/api"
)

// writeTestConfig writes a minimal valid configuration into dir and returns
// its path. The bind address controls where the CLI looks for a daemon.
func writeTestConfig(t *testing.T, bind string) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`[paths]
cache_dir = %q
temp_dir = %q
log_dir = %q
bind = %q

[opensubtitles]
api_key = "test-key"
payload_cache_dir = %q
`,
		filepath.Join(dir, "subtitle_cache"),
		filepath.Join(dir, "temp_processing"),
		filepath.Join(dir, "logs"),
		bind,
		filepath.Join(dir, "payloads"),
	)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// unreachableBind points at a port nothing listens on so commands fall back
// to direct queue store access.
const unreachableBind = "127.0.0.1:1"

func TestQueueListAgainstDaemon(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/queue/stats", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.QueueStatsResponse{Counts: map[string]int{"pending": 1}})
	})
	mux.HandleFunc("GET /api/queue", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.QueueListResponse{Jobs: []api.SyncJob{
			{
				ID:                7,
				IMDBID:            "tt0133093",
				ReferenceLanguage: "en",
				TargetLanguage:    "pt-br",
				CacheKey:          "tt0133093",
				Status:            "pending",
				Attempts:          1,
			},
		}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfgPath := writeTestConfig(t, unreachableBind)
	output, err := runCommand(t, "--config", cfgPath, "--server", server.URL, "queue", "list")
	require.NoError(t, err)
	assert.Contains(t, output, "tt0133093")
	assert.Contains(t, output, "pending")
}

func TestQueueListFallsBackToStore(t *testing.T) {
	cfgPath := writeTestConfig(t, unreachableBind)
	output, err := runCommand(t, "--config", cfgPath, "queue", "list")
	require.NoError(t, err)
	assert.Contains(t, output, "Queue is empty")
}

func TestSyncCommandSchedulesJobDirectly(t *testing.T) {
	cfgPath := writeTestConfig(t, unreachableBind)

	output, err := runCommand(t, "--config", cfgPath, "sync", "tt0903747:1:2")
	require.NoError(t, err)
	assert.Contains(t, output, "Scheduled sync job")
	assert.Contains(t, output, "tt0903747_S1E2")

	// The job is visible to subsequent commands through the shared database.
	output, err = runCommand(t, "--config", cfgPath, "queue", "list")
	require.NoError(t, err)
	assert.Contains(t, output, "tt0903747_S1E2")

	// Repeating the request deduplicates instead of scheduling again.
	output, err = runCommand(t, "--config", cfgPath, "sync", "tt0903747:1:2")
	require.NoError(t, err)
	assert.Contains(t, output, "already exists")
}

func TestSyncCommandRejectsMalformedID(t *testing.T) {
	cfgPath := writeTestConfig(t, unreachableBind)
	_, err := runCommand(t, "--config", cfgPath, "sync", "not-an-id")
	require.Error(t, err)
}

func TestQueueStatsFallsBackToStore(t *testing.T) {
	cfgPath := writeTestConfig(t, unreachableBind)

	_, err := runCommand(t, "--config", cfgPath, "sync", "tt0133093")
	require.NoError(t, err)

	output, err := runCommand(t, "--config", cfgPath, "queue", "stats")
	require.NoError(t, err)
	assert.Contains(t, output, "pending")
	assert.Contains(t, output, "total")
}

func TestQueueClearRequiresScope(t *testing.T) {
	cfgPath := writeTestConfig(t, unreachableBind)
	_, err := runCommand(t, "--config", cfgPath, "queue", "clear")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--completed")
}

func TestQueueShowUnknownJob(t *testing.T) {
	cfgPath := writeTestConfig(t, unreachableBind)
	_, err := runCommand(t, "--config", cfgPath, "queue", "show", "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestConfigInitWritesSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	output, err := runCommand(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, output, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[opensubtitles]")

	// A second init without --force refuses to clobber the file.
	_, err = runCommand(t, "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = runCommand(t, "config", "init", "--force", path)
	require.NoError(t, err)
}

func TestConfigShowPrintsEffectiveConfig(t *testing.T) {
	cfgPath := writeTestConfig(t, unreachableBind)
	output, err := runCommand(t, "--config", cfgPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, output, "[opensubtitles]")
	assert.Contains(t, output, "reference_language")
}

func TestStatusFallsBackWhenDaemonDown(t *testing.T) {
	cfgPath := writeTestConfig(t, unreachableBind)
	output, err := runCommand(t, "--config", cfgPath, "status")
	require.NoError(t, err)
	assert.Contains(t, output, "not running")
	assert.Contains(t, output, "Dependencies")
}
