package services

import (
	"context"
	"testing"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = WithJobID(ctx, 42)
	ctx = WithStage(ctx, "syncing")
	ctx = WithLane(ctx, "worker-1")
	ctx = WithRequestID(ctx, "req-123")

	if id, ok := JobIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("JobIDFromContext = %d, %v", id, ok)
	}
	if stage, ok := StageFromContext(ctx); !ok || stage != "syncing" {
		t.Fatalf("StageFromContext = %q, %v", stage, ok)
	}
	if lane, ok := LaneFromContext(ctx); !ok || lane != "worker-1" {
		t.Fatalf("LaneFromContext = %q, %v", lane, ok)
	}
	if req, ok := RequestIDFromContext(ctx); !ok || req != "req-123" {
		t.Fatalf("RequestIDFromContext = %q, %v", req, ok)
	}
}

func TestContextHelpersMissingValues(t *testing.T) {
	ctx := context.Background()
	if _, ok := JobIDFromContext(ctx); ok {
		t.Fatal("expected no job id")
	}
	if _, ok := StageFromContext(ctx); ok {
		t.Fatal("expected no stage")
	}
	if _, ok := RequestIDFromContext(ctx); ok {
		t.Fatal("expected no request id")
	}
}
