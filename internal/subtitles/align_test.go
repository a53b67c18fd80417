package subtitles

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Hello, World!", "hello world"},
		{"Line one\nLine two", "line one line two"},
		{"  Spaced   out  ", "spaced out"},
		{"<i>Styled</i>", "istyledi"},
	}
	for _, tc := range cases {
		if got := normalizeText(tc.input); got != tc.want {
			t.Errorf("normalizeText(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestFindMatchingCuesExactAndOverlap(t *testing.T) {
	reference := []srtCue{
		{index: 1, start: 10, end: 12, text: "Agent Smith 101"},
		{index: 2, start: 20, end: 22, text: "Follow the white rabbit"},
		{index: 3, start: 30, end: 32, text: "Wake up Neo"},
	}
	target := []srtCue{
		{index: 1, start: 12, end: 14, text: "Agent Smith 101"},
		{index: 2, start: 32, end: 34, text: "Wake up Neo"},
	}

	matches := findMatchingCues(reference, target)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0][0].index != 1 || matches[0][1].index != 1 {
		t.Fatalf("unexpected first match: %+v", matches[0])
	}
	if matches[1][0].index != 3 {
		t.Fatalf("unexpected second match: %+v", matches[1])
	}
}

func TestCalculateTimeTransform(t *testing.T) {
	matches := [][2]srtCue{
		{{start: 10}, {start: 12}},
		{{start: 110}, {start: 112}},
	}
	transform, ok := calculateTimeTransform(matches)
	if !ok {
		t.Fatal("expected transform to be calculated")
	}
	// Pure offset: reference runs 2s ahead of target.
	if math.Abs(transform.scale-1.0) > 1e-9 {
		t.Fatalf("expected scale 1.0, got %v", transform.scale)
	}
	if math.Abs(transform.offset+2.0) > 1e-9 {
		t.Fatalf("expected offset -2.0, got %v", transform.offset)
	}
	if got := transform.applyTransform(50); math.Abs(got-48) > 1e-9 {
		t.Fatalf("applyTransform(50) = %v, want 48", got)
	}
}

func TestCalculateTimeTransformNeedsTwoPoints(t *testing.T) {
	if _, ok := calculateTimeTransform([][2]srtCue{{{start: 1}, {start: 2}}}); ok {
		t.Fatal("expected failure with a single match")
	}
}

func TestAlignToReferenceShiftsTimeline(t *testing.T) {
	dir := t.TempDir()
	refPath := filepath.Join(dir, "ref.srt")
	targetPath := filepath.Join(dir, "target.srt")
	outPath := filepath.Join(dir, "out.srt")

	// Reference and target share anchor text but target lags 3 seconds.
	ref := `1
00:00:10,000 --> 00:00:12,000
Agent Smith 101

2
00:01:50,000 --> 00:01:52,000
Zion mainframe
`
	target := `1
00:00:13,000 --> 00:00:15,000
Agent Smith 101

2
00:01:53,000 --> 00:01:55,000
Zion mainframe
`
	if err := os.WriteFile(refPath, []byte(ref), 0o644); err != nil {
		t.Fatalf("write ref: %v", err)
	}
	if err := os.WriteFile(targetPath, []byte(target), 0o644); err != nil {
		t.Fatalf("write target: %v", err)
	}

	matched, err := AlignToReference(refPath, targetPath, outPath)
	if err != nil {
		t.Fatalf("AlignToReference failed: %v", err)
	}
	if matched != 2 {
		t.Fatalf("expected 2 matched cues, got %d", matched)
	}

	cues, err := parseSRTCues(outPath)
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(cues))
	}
	if math.Abs(cues[0].start-10.0) > 0.01 {
		t.Fatalf("first cue should align to 10s, got %v", cues[0].start)
	}
	if math.Abs(cues[1].start-110.0) > 0.01 {
		t.Fatalf("second cue should align to 110s, got %v", cues[1].start)
	}
}

func TestAlignToReferenceCopiesWhenNoMatches(t *testing.T) {
	dir := t.TempDir()
	refPath := filepath.Join(dir, "ref.srt")
	targetPath := filepath.Join(dir, "target.srt")
	outPath := filepath.Join(dir, "out.srt")

	ref := "1\n00:00:10,000 --> 00:00:12,000\nCompletely different\n"
	target := "1\n00:00:13,000 --> 00:00:15,000\nTotalmente distinto\n"
	if err := os.WriteFile(refPath, []byte(ref), 0o644); err != nil {
		t.Fatalf("write ref: %v", err)
	}
	if err := os.WriteFile(targetPath, []byte(target), 0o644); err != nil {
		t.Fatalf("write target: %v", err)
	}

	matched, err := AlignToReference(refPath, targetPath, outPath)
	if err != nil {
		t.Fatalf("AlignToReference failed: %v", err)
	}
	if matched >= 2 {
		t.Fatalf("expected fewer than 2 matches, got %d", matched)
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want, _ := os.ReadFile(targetPath)
	if string(out) != string(want) {
		t.Fatal("output should be an unchanged copy of the target")
	}
}
