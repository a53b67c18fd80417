package subtitles

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"subsync/internal/services"
)

// DefaultFFSubsyncBinary is the conventional name of the ffsubsync CLI.
const DefaultFFSubsyncBinary = "ffsubsync"

// FFSubsync runs the external ffsubsync tool to align a target subtitle
// against a reference subtitle timeline.
type FFSubsync struct {
	binary        string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewFFSubsync creates an aligner using the given binary name or path.
func NewFFSubsync(binary string) *FFSubsync {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultFFSubsyncBinary
	}
	return &FFSubsync{binary: binary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (f *FFSubsync) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	f.commandRunner = runner
}

// Binary returns the configured binary name.
func (f *FFSubsync) Binary() string {
	return f.binary
}

// Available reports whether the ffsubsync binary can be resolved on PATH.
func (f *FFSubsync) Available() bool {
	if f == nil {
		return false
	}
	if f.commandRunner != nil {
		return true
	}
	_, err := exec.LookPath(f.binary)
	return err == nil
}

// Align runs ffsubsync with the reference as the sync anchor. Output is
// forced to UTF-8 so accented characters survive the round trip.
func (f *FFSubsync) Align(ctx context.Context, referencePath, targetPath, outputPath string) error {
	args := []string{
		referencePath,
		"-i", targetPath,
		"-o", outputPath,
		"--encoding", "utf-8",
	}
	if err := f.run(ctx, f.binary, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "syncing", "run ffsubsync", "subtitle alignment failed", err)
	}
	return nil
}

func (f *FFSubsync) run(ctx context.Context, name string, args ...string) error {
	if f.commandRunner != nil {
		return f.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
