// Package deps checks the availability of external binaries the sync
// pipeline shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"subsync/internal/config"
)

// Requirement defines an external dependency the daemon relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements builds the dependency list for the given configuration.
// ffsubsync is optional because the built-in aligner covers its absence;
// ffmpeg is optional because ffsubsync only needs it for media-based sync.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "ffsubsync",
			Command:     cfg.Sync.FFSubsyncBinary,
			Description: "Subtitle alignment engine",
			Optional:    true,
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Sync.FFmpegBinary,
			Description: "Audio/media decoding for ffsubsync",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if resolved, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
		} else {
			status.Command = resolved
			status.Available = true
		}
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of required dependencies that are
// unavailable.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
