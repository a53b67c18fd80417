package textutil

import (
	"math"
	"regexp"
	"strings"
)

var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Fingerprint is a term-frequency vector built from a release name.
type Fingerprint struct {
	terms map[string]float64
	norm  float64
}

// NewFingerprint tokenizes a release name into a comparable vector. Returns
// nil when the name yields no usable tokens.
func NewFingerprint(release string) *Fingerprint {
	tokens := tokenize(release)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var norm float64
	for _, count := range counts {
		norm += count * count
	}
	return &Fingerprint{terms: counts, norm: math.Sqrt(norm)}
}

// tokenize lowercases the name and splits on non-alphanumeric runs. Short
// tokens are kept because resolution and codec tags ("x264", "720p") carry
// most of the signal in release names.
func tokenize(release string) []string {
	raw := tokenSplitPattern.Split(strings.ToLower(release), -1)
	tokens := make([]string, 0, len(raw))
	for _, token := range raw {
		if len(token) < 2 {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// CosineSimilarity scores two fingerprints in [0, 1]. Nil or empty
// fingerprints score 0.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.terms {
		if other, ok := b.terms[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}

// ReleaseSimilarity is a convenience wrapper comparing two raw release names.
func ReleaseSimilarity(a, b string) float64 {
	return CosineSimilarity(NewFingerprint(a), NewFingerprint(b))
}
