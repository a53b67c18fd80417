package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"subsync/internal/queue"
	"subsync/internal/testsupport"
)

func TestOpenInitializesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job, created, err := store.Enqueue(ctx, queue.EnqueueRequest{
		IMDBID:            "tt0133093",
		ReferenceLanguage: "en",
		TargetLanguage:    "pt-br",
		CacheKey:          "tt0133093",
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if !created {
		t.Fatal("expected new job to be created")
	}
	if job.ID == 0 {
		t.Fatal("expected job ID to be assigned")
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", job.Status)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.IMDBID != "tt0133093" {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}
}

func TestEnqueueDeduplicatesByCacheKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	req := queue.EnqueueRequest{
		IMDBID:            "tt0903747",
		Season:            1,
		Episode:           2,
		ReferenceLanguage: "en",
		TargetLanguage:    "pt-br",
		CacheKey:          "tt0903747_S01E02",
	}

	first, created, err := store.Enqueue(ctx, req)
	if err != nil {
		t.Fatalf("first Enqueue failed: %v", err)
	}
	if !created {
		t.Fatal("expected first enqueue to create a job")
	}

	second, created, err := store.Enqueue(ctx, req)
	if err != nil {
		t.Fatalf("second Enqueue failed: %v", err)
	}
	if created {
		t.Fatal("expected second enqueue to return existing job")
	}
	if second.ID != first.ID {
		t.Fatalf("expected same job, got %d vs %d", second.ID, first.ID)
	}
}

func TestEnqueueRequiresCacheKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, _, err := store.Enqueue(context.Background(), queue.EnqueueRequest{IMDBID: "tt0000001"}); err == nil {
		t.Fatal("expected error when cache key missing")
	}
}

func TestGetByCacheKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.EnqueueMovie(t, store, "tt0111161")

	found, err := store.GetByCacheKey(ctx, "tt0111161")
	if err != nil {
		t.Fatalf("GetByCacheKey failed: %v", err)
	}
	if found == nil || found.ID != job.ID {
		t.Fatalf("expected to find enqueued job, got %#v", found)
	}

	missing, err := store.GetByCacheKey(ctx, "tt9999999")
	if err != nil {
		t.Fatalf("GetByCacheKey for missing key failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown key, got %#v", missing)
	}
}

func TestUpdatePersistsFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.EnqueueMovie(t, store, "tt0068646")

	job.Status = queue.StatusSyncing
	job.ProgressMessage = "Aligning subtitles"
	job.Attempts = 1
	now := time.Now().UTC()
	job.LastHeartbeat = &now
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusSyncing {
		t.Fatalf("status not persisted: %s", fetched.Status)
	}
	if fetched.ProgressMessage != "Aligning subtitles" {
		t.Fatalf("progress message not persisted: %q", fetched.ProgressMessage)
	}
	if fetched.Attempts != 1 {
		t.Fatalf("attempts not persisted: %d", fetched.Attempts)
	}
	if fetched.LastHeartbeat == nil {
		t.Fatal("heartbeat not persisted")
	}
}

func TestNextForStatusesReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	var firstID int64
	for i := 0; i < 3; i++ {
		job, _, err := store.Enqueue(ctx, queue.EnqueueRequest{
			IMDBID:            fmt.Sprintf("tt000000%d", i),
			ReferenceLanguage: "en",
			TargetLanguage:    "pt-br",
			CacheKey:          fmt.Sprintf("tt000000%d", i),
		})
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		if i == 0 {
			firstID = job.ID
		}
		// created_at ordering needs distinct timestamps
		time.Sleep(2 * time.Millisecond)
	}

	next, err := store.NextForStatuses(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if next == nil || next.ID != firstID {
		t.Fatalf("expected oldest pending job %d, got %#v", firstID, next)
	}

	none, err := store.NextForStatuses(ctx, queue.StatusSyncing)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no syncing jobs, got %#v", none)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	statuses := []queue.Status{queue.StatusSearching, queue.StatusDownloading, queue.StatusSyncing}
	for i, status := range statuses {
		job, _, err := store.Enqueue(ctx, queue.EnqueueRequest{
			IMDBID:            fmt.Sprintf("tt100000%d", i),
			ReferenceLanguage: "en",
			TargetLanguage:    "pt-br",
			CacheKey:          fmt.Sprintf("tt100000%d", i),
		})
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		job.Status = status
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}

	reset, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if reset != int64(len(statuses)) {
		t.Fatalf("expected %d reset jobs, got %d", len(statuses), reset)
	}

	pending, err := store.List(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(pending) != len(statuses) {
		t.Fatalf("expected %d pending jobs, got %d", len(statuses), len(pending))
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	stale := testsupport.EnqueueMovie(t, store, "tt2000001")
	stale.Status = queue.StatusSyncing
	staleBeat := time.Now().UTC().Add(-10 * time.Minute)
	stale.LastHeartbeat = &staleBeat
	if err := store.Update(ctx, stale); err != nil {
		t.Fatalf("Update stale failed: %v", err)
	}

	fresh, _, err := store.Enqueue(ctx, queue.EnqueueRequest{
		IMDBID:            "tt2000002",
		ReferenceLanguage: "en",
		TargetLanguage:    "pt-br",
		CacheKey:          "tt2000002",
	})
	if err != nil {
		t.Fatalf("Enqueue fresh failed: %v", err)
	}
	fresh.Status = queue.StatusSyncing
	if err := store.Update(ctx, fresh); err != nil {
		t.Fatalf("Update fresh failed: %v", err)
	}
	if err := store.UpdateHeartbeat(ctx, fresh.ID); err != nil {
		t.Fatalf("UpdateHeartbeat failed: %v", err)
	}

	reclaimed, err := store.ReclaimStaleProcessing(ctx, time.Now().UTC().Add(-5*time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing failed: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("expected 1 reclaimed job, got %d", reclaimed)
	}

	reloaded, err := store.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reloaded.Status != queue.StatusPending {
		t.Fatalf("stale job should be pending, got %s", reloaded.Status)
	}
	if reloaded.LastHeartbeat != nil {
		t.Fatal("stale job heartbeat should be cleared")
	}

	stillSyncing, err := store.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stillSyncing.Status != queue.StatusSyncing {
		t.Fatalf("fresh job should stay syncing, got %s", stillSyncing.Status)
	}
}

func TestRetryFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	var ids []int64
	for i := 0; i < 2; i++ {
		job, _, err := store.Enqueue(ctx, queue.EnqueueRequest{
			IMDBID:            fmt.Sprintf("tt300000%d", i),
			ReferenceLanguage: "en",
			TargetLanguage:    "pt-br",
			CacheKey:          fmt.Sprintf("tt300000%d", i),
		})
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		job.SetFailed("download timed out")
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		ids = append(ids, job.ID)
	}

	retried, err := store.RetryFailed(ctx, ids[0])
	if err != nil {
		t.Fatalf("RetryFailed(id) failed: %v", err)
	}
	if retried != 1 {
		t.Fatalf("expected 1 retried job, got %d", retried)
	}

	retried, err = store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed(all) failed: %v", err)
	}
	if retried != 1 {
		t.Fatalf("expected remaining 1 retried job, got %d", retried)
	}

	for _, id := range ids {
		job, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if job.Status != queue.StatusPending {
			t.Fatalf("job %d should be pending, got %s", id, job.Status)
		}
		if job.ErrorMessage != "" {
			t.Fatalf("job %d error message should be cleared, got %q", id, job.ErrorMessage)
		}
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	seed := []queue.Status{
		queue.StatusPending,
		queue.StatusSyncing,
		queue.StatusCompleted,
		queue.StatusCompleted,
		queue.StatusFailed,
	}
	for i, status := range seed {
		job, _, err := store.Enqueue(ctx, queue.EnqueueRequest{
			IMDBID:            fmt.Sprintf("tt400000%d", i),
			ReferenceLanguage: "en",
			TargetLanguage:    "pt-br",
			CacheKey:          fmt.Sprintf("tt400000%d", i),
		})
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		job.Status = status
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[queue.StatusCompleted] != 2 {
		t.Fatalf("expected 2 completed, got %d", stats[queue.StatusCompleted])
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 5 || health.Pending != 1 || health.Processing != 1 || health.Completed != 2 || health.Failed != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}
}

func TestRemoveAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	keep := testsupport.EnqueueMovie(t, store, "tt5000001")

	done, _, err := store.Enqueue(ctx, queue.EnqueueRequest{
		IMDBID:            "tt5000002",
		ReferenceLanguage: "en",
		TargetLanguage:    "pt-br",
		CacheKey:          "tt5000002",
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	cleared, err := store.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted failed: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected 1 cleared job, got %d", cleared)
	}

	removed, err := store.Remove(ctx, keep.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatal("expected removal to report success")
	}

	removed, err = store.Remove(ctx, keep.ID)
	if err != nil {
		t.Fatalf("second Remove failed: %v", err)
	}
	if removed {
		t.Fatal("expected removal of missing job to report false")
	}

	remaining, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected empty queue, got %d jobs", len(remaining))
	}
}

func TestTransitionClaimsOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.EnqueueMovie(t, store, "tt6000001")

	claimed, err := store.Transition(ctx, job.ID, queue.StatusPending, queue.StatusSearching)
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if !claimed {
		t.Fatal("expected first transition to claim the job")
	}

	claimed, err = store.Transition(ctx, job.ID, queue.StatusPending, queue.StatusSearching)
	if err != nil {
		t.Fatalf("second Transition failed: %v", err)
	}
	if claimed {
		t.Fatal("expected second transition to lose the race")
	}

	reloaded, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reloaded.Status != queue.StatusSearching {
		t.Fatalf("expected searching status, got %s", reloaded.Status)
	}
	if reloaded.LastHeartbeat == nil {
		t.Fatal("claim should set a heartbeat")
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Pending "); !ok || status != queue.StatusPending {
		t.Fatalf("ParseStatus(pending) = %q, %v", status, ok)
	}
	if _, ok := queue.ParseStatus("bogus"); ok {
		t.Fatal("expected bogus status to be rejected")
	}
	if _, ok := queue.ParseStatus(""); ok {
		t.Fatal("expected empty status to be rejected")
	}
}
