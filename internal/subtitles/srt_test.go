package subtitles

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:02,500
Hello there

2
00:00:04,000 --> 00:00:05,800
General Kenobi

3
00:01:10,250 --> 00:01:12,000
You are a bold one
`

func writeTempSRT(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.srt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write srt: %v", err)
	}
	return path
}

func TestParseSRTCues(t *testing.T) {
	path := writeTempSRT(t, sampleSRT)
	cues, err := parseSRTCues(path)
	if err != nil {
		t.Fatalf("parseSRTCues failed: %v", err)
	}
	if len(cues) != 3 {
		t.Fatalf("expected 3 cues, got %d", len(cues))
	}
	if cues[0].start != 1.0 || cues[0].end != 2.5 {
		t.Fatalf("unexpected first cue timing: %+v", cues[0])
	}
	if cues[2].start != 70.25 {
		t.Fatalf("unexpected third cue start: %v", cues[2].start)
	}
	if cues[1].text != "General Kenobi" {
		t.Fatalf("unexpected second cue text: %q", cues[1].text)
	}
}

func TestParseSRTCuesHandlesCRLF(t *testing.T) {
	path := writeTempSRT(t, "1\r\n00:00:01,000 --> 00:00:02,000\r\nHi\r\n\r\n2\r\n00:00:03,000 --> 00:00:04,000\r\nBye\r\n")
	cues, err := parseSRTCues(path)
	if err != nil {
		t.Fatalf("parseSRTCues failed: %v", err)
	}
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(cues))
	}
}

func TestParseSRTCuesStripsByteOrderMark(t *testing.T) {
	path := writeTempSRT(t, "\uFEFF"+sampleSRT)
	cues, err := parseSRTCues(path)
	if err != nil {
		t.Fatalf("parseSRTCues failed: %v", err)
	}
	if len(cues) != 3 {
		t.Fatalf("expected 3 cues, got %d", len(cues))
	}
	if cues[0].text != "Hello there" {
		t.Fatalf("BOM leaked into first cue: %q", cues[0].text)
	}
}

func TestParseSRTTimestamp(t *testing.T) {
	cases := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"00:00:01,000", 1.0, false},
		{"01:02:03,450", 3723.45, false},
		{"00:00:01.500", 1.5, false},
		{"garbage", 0, true},
		{"", 0, true},
		{"00:01,000", 0, true},
	}
	for _, tc := range cases {
		got, err := parseSRTTimestamp(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseSRTTimestamp(%q) expected error", tc.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseSRTTimestamp(%q) failed: %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseSRTTimestamp(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestFormatSRTTimestampRoundTrip(t *testing.T) {
	for _, seconds := range []float64{0, 1.5, 70.25, 3723.45} {
		formatted := formatSRTTimestamp(seconds)
		parsed, err := parseSRTTimestamp(formatted)
		if err != nil {
			t.Fatalf("parse formatted %q: %v", formatted, err)
		}
		if parsed != seconds {
			t.Fatalf("round trip %v -> %q -> %v", seconds, formatted, parsed)
		}
	}
	if got := formatSRTTimestamp(-5); got != "00:00:00,000" {
		t.Fatalf("negative timestamp should clamp to zero, got %q", got)
	}
}

func TestWriteSRTCuesRoundTrip(t *testing.T) {
	src := writeTempSRT(t, sampleSRT)
	cues, err := parseSRTCues(src)
	if err != nil {
		t.Fatalf("parseSRTCues failed: %v", err)
	}

	out := filepath.Join(t.TempDir(), "out.srt")
	if err := writeSRTCues(out, cues); err != nil {
		t.Fatalf("writeSRTCues failed: %v", err)
	}
	reread, err := parseSRTCues(out)
	if err != nil {
		t.Fatalf("reread failed: %v", err)
	}
	if len(reread) != len(cues) {
		t.Fatalf("cue count changed: %d vs %d", len(reread), len(cues))
	}
	for i := range cues {
		if reread[i].text != cues[i].text || reread[i].start != cues[i].start {
			t.Fatalf("cue %d changed: %+v vs %+v", i, reread[i], cues[i])
		}
	}
}

func TestValidateSRTContent(t *testing.T) {
	good := writeTempSRT(t, sampleSRT)
	if issues := ValidateSRTContent(good); len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}

	empty := writeTempSRT(t, "")
	issues := ValidateSRTContent(empty)
	if len(issues) != 1 || issues[0] != "empty_subtitle_file" {
		t.Fatalf("expected empty_subtitle_file, got %v", issues)
	}

	missing := filepath.Join(t.TempDir(), "missing.srt")
	issues = ValidateSRTContent(missing)
	if len(issues) == 0 {
		t.Fatal("expected read error for missing file")
	}
}
