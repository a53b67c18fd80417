package textutil

import "testing"

func TestReleaseSimilarityRanksMatchingRips(t *testing.T) {
	reference := "The.Matrix.1999.1080p.BluRay.x264-SPARKS"
	sameRip := "The.Matrix.1999.1080p.BluRay.x264-SPARKS.PTBR"
	otherRip := "The.Matrix.1999.WEBRip.XviD-GROUP"

	same := ReleaseSimilarity(reference, sameRip)
	other := ReleaseSimilarity(reference, otherRip)
	if same <= other {
		t.Fatalf("expected matching rip to score higher: same=%f other=%f", same, other)
	}
}

func TestReleaseSimilarityBounds(t *testing.T) {
	if got := ReleaseSimilarity("abc def", "abc def"); got < 0.999 {
		t.Fatalf("identical names should score ~1, got %f", got)
	}
	if got := ReleaseSimilarity("alpha bravo", "charlie delta"); got != 0 {
		t.Fatalf("disjoint names should score 0, got %f", got)
	}
}

func TestNewFingerprintEmpty(t *testing.T) {
	if fp := NewFingerprint("!!"); fp != nil {
		t.Fatalf("expected nil fingerprint for token-free input")
	}
	if got := CosineSimilarity(nil, NewFingerprint("abc")); got != 0 {
		t.Fatalf("nil fingerprint should score 0, got %f", got)
	}
}
