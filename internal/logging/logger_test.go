package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, level string) *slog.Logger {
	levelVar := new(slog.LevelVar)
	levelVar.Set(ParseLevel(level))
	return slog.New(&consoleHandler{mu: &sync.Mutex{}, writer: buf, level: levelVar})
}

func TestConsoleHandlerFormatsComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := NewComponentLogger(newTestLogger(&buf, "info"), "addon")

	logger.Info("request served", String("path", "/manifest.json"), Int("status", 200))

	line := buf.String()
	if !strings.Contains(line, "INFO addon: request served") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "path=/manifest.json") || !strings.Contains(line, "status=200") {
		t.Fatalf("missing attributes: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, "info")

	logger.Warn("sync failed", String("reason", "reference not found"))

	if !strings.Contains(buf.String(), `reason="reference not found"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, "warn")

	logger.Info("ignored")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "ignored") {
		t.Fatalf("info record should be suppressed: %q", out)
	}
	if !strings.Contains(out, "WARN kept") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestContextFields(t *testing.T) {
	ctx := WithJobID(context.Background(), 42)
	ctx = WithStage(ctx, "syncing")
	ctx = WithCorrelationID(ctx, "abc-123")

	fields := ContextFields(ctx)
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}

	var buf bytes.Buffer
	WithContext(ctx, newTestLogger(&buf, "info")).Info("processing")
	line := buf.String()
	for _, want := range []string{"job_id=42", "stage=syncing", "correlation_id=abc-123"} {
		if !strings.Contains(line, want) {
			t.Errorf("missing %q in %q", want, line)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
