package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeOpenSubtitles(); err != nil {
		return err
	}
	c.normalizeSync()
	c.normalizeAddon()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = defaultTempDir
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.Bind = strings.TrimSpace(c.Paths.Bind)
	if c.Paths.Bind == "" {
		c.Paths.Bind = defaultBind
	}
	return nil
}

func (c *Config) normalizeOpenSubtitles() error {
	if c.OpenSubtitles.APIKey == "" {
		if value, ok := os.LookupEnv("OPENSUBTITLES_API_KEY"); ok {
			c.OpenSubtitles.APIKey = value
		}
	}
	c.OpenSubtitles.APIKey = strings.TrimSpace(c.OpenSubtitles.APIKey)
	c.OpenSubtitles.UserAgent = strings.TrimSpace(c.OpenSubtitles.UserAgent)
	if c.OpenSubtitles.UserAgent == "" {
		c.OpenSubtitles.UserAgent = defaultOSUserAgent
	}
	c.OpenSubtitles.BaseURL = strings.TrimSpace(c.OpenSubtitles.BaseURL)
	if c.OpenSubtitles.BaseURL == "" {
		c.OpenSubtitles.BaseURL = defaultOSBaseURL
	}
	c.OpenSubtitles.ReferenceLanguage = strings.ToLower(strings.TrimSpace(c.OpenSubtitles.ReferenceLanguage))
	if c.OpenSubtitles.ReferenceLanguage == "" {
		c.OpenSubtitles.ReferenceLanguage = defaultReferenceLanguage
	}
	c.OpenSubtitles.TargetLanguage = strings.ToLower(strings.TrimSpace(c.OpenSubtitles.TargetLanguage))
	if c.OpenSubtitles.TargetLanguage == "" {
		c.OpenSubtitles.TargetLanguage = defaultTargetLanguage
	}
	if strings.TrimSpace(c.OpenSubtitles.PayloadCacheDir) == "" {
		c.OpenSubtitles.PayloadCacheDir = defaultPayloadCacheDir
	}
	var err error
	if c.OpenSubtitles.PayloadCacheDir, err = expandPath(c.OpenSubtitles.PayloadCacheDir); err != nil {
		return fmt.Errorf("opensubtitles.payload_cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSync() {
	c.Sync.FFSubsyncBinary = strings.TrimSpace(c.Sync.FFSubsyncBinary)
	if c.Sync.FFSubsyncBinary == "" {
		c.Sync.FFSubsyncBinary = defaultFFSubsyncBinary
	}
	c.Sync.FFmpegBinary = strings.TrimSpace(c.Sync.FFmpegBinary)
	if c.Sync.FFmpegBinary == "" {
		c.Sync.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Sync.JobTimeout <= 0 {
		c.Sync.JobTimeout = defaultJobTimeout
	}
	if c.Sync.MaxAttempts <= 0 {
		c.Sync.MaxAttempts = defaultMaxAttempts
	}
	if c.Sync.RequestTimeout <= 0 {
		c.Sync.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeAddon() {
	c.Addon.ID = strings.TrimSpace(c.Addon.ID)
	if c.Addon.ID == "" {
		c.Addon.ID = defaultAddonID
	}
	c.Addon.Name = strings.TrimSpace(c.Addon.Name)
	if c.Addon.Name == "" {
		c.Addon.Name = defaultAddonName
	}
	c.Addon.Version = strings.TrimSpace(c.Addon.Version)
	if c.Addon.Version == "" {
		c.Addon.Version = defaultAddonVersion
	}
	c.Addon.Description = strings.TrimSpace(c.Addon.Description)
	if c.Addon.Description == "" {
		c.Addon.Description = defaultAddonDescription
	}
	c.Addon.PublicURL = strings.TrimRight(strings.TrimSpace(c.Addon.PublicURL), "/")
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetry
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		c.Workflow.HeartbeatTimeout = defaultHeartbeatTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
