package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateOpenSubtitles(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.CacheDir == c.Paths.TempDir {
		return errors.New("paths.cache_dir and paths.temp_dir must differ")
	}
	if _, _, err := net.SplitHostPort(c.Paths.Bind); err != nil {
		return fmt.Errorf("paths.bind %q is not a host:port address: %w", c.Paths.Bind, err)
	}
	return nil
}

func (c *Config) validateOpenSubtitles() error {
	if c.OpenSubtitles.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/subsync/config.toml"
		}
		return fmt.Errorf("opensubtitles.api_key is required. Set OPENSUBTITLES_API_KEY env var or edit %s (create with 'subsync config init')", defaultPath)
	}
	if c.OpenSubtitles.ReferenceLanguage == c.OpenSubtitles.TargetLanguage {
		return errors.New("opensubtitles.reference_language and target_language must differ")
	}
	return nil
}

func (c *Config) validateSync() error {
	if strings.ContainsAny(c.Sync.FFSubsyncBinary, " \t") {
		return fmt.Errorf("sync.ffsubsync_binary %q must be a bare command name or path", c.Sync.FFSubsyncBinary)
	}
	if c.Sync.JobTimeout < 10 {
		return errors.New("sync.job_timeout must be at least 10 seconds")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Workers > 32 {
		return errors.New("workflow.workers must be 32 or fewer")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must exceed workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
