package subtitles

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// srtCue represents a single subtitle cue with timing and text.
type srtCue struct {
	index int
	start float64
	end   float64
	text  string
}

// parseSRTCues reads an SRT file and returns all cues.
func parseSRTCues(path string) ([]srtCue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	return parseSRTContent(string(data)), nil
}

func parseSRTContent(content string) []srtCue {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimPrefix(content, "\uFEFF")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	blocks := strings.Split(content, "\n\n")
	var cues []srtCue

	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		lines := strings.Split(block, "\n")
		if len(lines) < 3 {
			continue
		}

		var index int
		if _, err := fmt.Sscanf(lines[0], "%d", &index); err != nil {
			continue
		}

		if !strings.Contains(lines[1], "-->") {
			continue
		}
		parts := strings.Split(lines[1], "-->")
		if len(parts) != 2 {
			continue
		}

		start, err := parseSRTTimestamp(parts[0])
		if err != nil {
			continue
		}
		end, err := parseSRTTimestamp(parts[1])
		if err != nil {
			continue
		}

		text := strings.Join(lines[2:], "\n")

		cues = append(cues, srtCue{
			index: index,
			start: start,
			end:   end,
			text:  text,
		})
	}

	return cues
}

func parseSRTTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	// Normalize period to comma (SRT standard uses comma for milliseconds)
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

func formatSRTTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMillis := int64(math.Round(seconds * 1000))
	hours := totalMillis / 3_600_000
	totalMillis -= hours * 3_600_000
	minutes := totalMillis / 60_000
	totalMillis -= minutes * 60_000
	secs := totalMillis / 1000
	millis := totalMillis - secs*1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// writeSRTCues writes cues to an SRT file.
func writeSRTCues(path string, cues []srtCue) error {
	var sb strings.Builder
	for i, cue := range cues {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%d\n", cue.index))
		sb.WriteString(fmt.Sprintf("%s --> %s\n", formatSRTTimestamp(cue.start), formatSRTTimestamp(cue.end)))
		sb.WriteString(cue.text)
		sb.WriteString("\n")
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

// CountCues returns the number of cues in an SRT file.
func CountCues(path string) (int, error) {
	cues, err := parseSRTCues(path)
	if err != nil {
		return 0, err
	}
	return len(cues), nil
}

// ValidateSRTContent checks an SRT file for format issues.
// Returns a list of issues found; empty slice means validation passed.
func ValidateSRTContent(path string) []string {
	var issues []string

	cues, err := parseSRTCues(path)
	if err != nil {
		issues = append(issues, fmt.Sprintf("read_error: %v", err))
		return issues
	}
	if len(cues) == 0 {
		issues = append(issues, "empty_subtitle_file")
		return issues
	}

	first := math.Inf(1)
	var last float64
	for _, cue := range cues {
		if cue.start < first {
			first = cue.start
		}
		if cue.end > last {
			last = cue.end
		}
	}
	if last == 0 {
		issues = append(issues, "no_valid_timestamps")
	}
	if last > 0 && first > last {
		issues = append(issues, "inverted_timestamps")
	}

	return issues
}
