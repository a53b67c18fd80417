package testsupport

import (
	"context"
	"testing"

	"subsync/internal/config"
	"subsync/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// EnqueueMovie inserts a pending movie job for tests using the provided store.
func EnqueueMovie(t testing.TB, store *queue.Store, imdbID string) *queue.Job {
	t.Helper()

	job, _, err := store.Enqueue(context.Background(), queue.EnqueueRequest{
		IMDBID:            imdbID,
		ReferenceLanguage: "en",
		TargetLanguage:    "pt-br",
		CacheKey:          imdbID,
	})
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return job
}
