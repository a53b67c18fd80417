package subtitles

import (
	"fmt"
	"regexp"
	"strings"

	"subsync/internal/fileutil"
)

var textNormalizeRe = regexp.MustCompile(`[^a-z0-9\s]`)

// normalizeText prepares text for comparison by lowercasing and removing punctuation.
func normalizeText(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "\n", " ")
	s = textNormalizeRe.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	return s
}

// findMatchingCues finds cues from target that match cues in reference by text
// similarity. Returns pairs of (reference cue, target cue). Matching considers
// both text content and timing proximity, which keeps cross-language matches
// anchored to numbers, names, and loanwords.
func findMatchingCues(reference, target []srtCue) [][2]srtCue {
	var matches [][2]srtCue

	// Maximum time difference (in seconds) to consider a potential match
	const maxTimeDiff = 60.0

	for _, tc := range target {
		targetNorm := normalizeText(tc.text)
		if targetNorm == "" {
			continue
		}

		var bestMatch *srtCue
		bestScore := 0.0

		for i := range reference {
			rc := &reference[i]
			refNorm := normalizeText(rc.text)
			if refNorm == "" {
				continue
			}

			timeDiff := tc.start - rc.start
			if timeDiff < 0 {
				timeDiff = -timeDiff
			}
			if len(matches) > 0 && timeDiff > maxTimeDiff {
				continue
			}

			var score float64
			if targetNorm == refNorm {
				score = 1.0
			} else if strings.Contains(refNorm, targetNorm) {
				score = 0.9
			} else if strings.Contains(targetNorm, refNorm) {
				score = 0.8
			} else {
				overlap := wordOverlap(targetNorm, refNorm)
				if overlap >= 0.6 {
					score = overlap * 0.7
				}
			}

			if score > bestScore {
				bestScore = score
				bestMatch = rc
			}
		}

		if bestMatch != nil && bestScore >= 0.4 {
			matches = append(matches, [2]srtCue{*bestMatch, tc})
		}
	}

	return matches
}

// wordOverlap calculates the ratio of matching words between two strings.
func wordOverlap(a, b string) float64 {
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	matches := 0
	for _, wa := range wordsA {
		for _, wb := range wordsB {
			if wa == wb {
				matches++
				break
			}
		}
	}

	denom := len(wordsA)
	if len(wordsB) < denom {
		denom = len(wordsB)
	}
	return float64(matches) / float64(denom)
}

// timeTransform represents a linear time transformation: t_new = scale * t_old + offset
type timeTransform struct {
	scale  float64
	offset float64
}

// calculateTimeTransform computes a linear transformation from matched cue pairs.
func calculateTimeTransform(matches [][2]srtCue) (timeTransform, bool) {
	if len(matches) < 2 {
		return timeTransform{scale: 1.0, offset: 0}, false
	}

	first := matches[0]
	last := matches[len(matches)-1]

	// t_ref = scale * t_target + offset, fitted on start times
	t1Target := first[1].start
	t1Ref := first[0].start
	t2Target := last[1].start
	t2Ref := last[0].start

	if t2Target == t1Target {
		return timeTransform{scale: 1.0, offset: t1Ref - t1Target}, true
	}

	scale := (t2Ref - t1Ref) / (t2Target - t1Target)
	offset := t1Ref - scale*t1Target

	return timeTransform{scale: scale, offset: offset}, true
}

// applyTransform converts a time using the transformation.
func (t timeTransform) applyTransform(seconds float64) float64 {
	return t.scale*seconds + t.offset
}

// AlignToReference adjusts target subtitle timing based on a reference
// subtitle in another language. It finds matching cues, fits a linear time
// transformation, and rewrites the target timeline. When fewer than two
// matches are found the target is copied unchanged.
func AlignToReference(referencePath, targetPath, outputPath string) (int, error) {
	refCues, err := parseSRTCues(referencePath)
	if err != nil {
		return 0, fmt.Errorf("parse reference: %w", err)
	}

	targetCues, err := parseSRTCues(targetPath)
	if err != nil {
		return 0, fmt.Errorf("parse target: %w", err)
	}

	matches := findMatchingCues(refCues, targetCues)
	if len(matches) < 2 {
		if err := fileutil.CopyFile(targetPath, outputPath); err != nil {
			return 0, err
		}
		return len(matches), nil
	}

	transform, ok := calculateTimeTransform(matches)
	if !ok {
		if err := fileutil.CopyFile(targetPath, outputPath); err != nil {
			return 0, err
		}
		return len(matches), nil
	}

	adjusted := make([]srtCue, len(targetCues))
	for i, cue := range targetCues {
		adjusted[i] = srtCue{
			index: cue.index,
			start: transform.applyTransform(cue.start),
			end:   transform.applyTransform(cue.end),
			text:  cue.text,
		}
	}

	if err := writeSRTCues(outputPath, adjusted); err != nil {
		return 0, fmt.Errorf("write adjusted: %w", err)
	}

	return len(matches), nil
}
