package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// WriteSRT writes a syntactically valid SRT file with the given number of
// cues, starting at the provided offset and spaced one second apart.
func WriteSRT(t testing.TB, path string, cues int, offset time.Duration) {
	t.Helper()

	if cues <= 0 {
		cues = 1
	}
	var b strings.Builder
	for i := 0; i < cues; i++ {
		start := offset + time.Duration(i)*time.Second
		end := start + 800*time.Millisecond
		fmt.Fprintf(&b, "%d\n%s --> %s\nLine %d\n\n", i+1, formatSRTTime(start), formatSRTTime(end), i+1)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func formatSRTTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
