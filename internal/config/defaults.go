package config

const (
	defaultCacheDir          = "~/.local/share/subsync/subtitle_cache"
	defaultTempDir           = "~/.local/share/subsync/temp_processing"
	defaultLogDir            = "~/.local/share/subsync/logs"
	defaultBind              = "0.0.0.0:7000"
	defaultOSBaseURL         = "https://api.opensubtitles.com/api/v1"
	defaultOSUserAgent       = "subsync/dev"
	defaultReferenceLanguage = "en"
	defaultTargetLanguage    = "pt-br"
	defaultPayloadCacheDir   = "~/.local/share/subsync/cache/opensubtitles"
	defaultFFSubsyncBinary   = "ffsubsync"
	defaultFFmpegBinary      = "ffmpeg"
	defaultJobTimeout        = 300
	defaultMaxAttempts       = 3
	defaultRequestTimeout    = 120
	defaultAddonID           = "community.autosync.ptbr"
	defaultAddonName         = "AutoSync PT-BR"
	defaultAddonVersion      = "0.1.0"
	defaultAddonDescription  = "Synchronizes PT-BR subtitles automatically using EN as the anti-drift reference."
	defaultWorkers           = 2
	defaultQueuePollInterval = 3
	defaultErrorRetry        = 10
	defaultHeartbeatInterval = 15
	defaultHeartbeatTimeout  = 120
	defaultNtfyTimeout       = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir,
			TempDir:  defaultTempDir,
			LogDir:   defaultLogDir,
			Bind:     defaultBind,
		},
		OpenSubtitles: OpenSubtitles{
			UserAgent:         defaultOSUserAgent,
			BaseURL:           defaultOSBaseURL,
			ReferenceLanguage: defaultReferenceLanguage,
			TargetLanguage:    defaultTargetLanguage,
			PayloadCacheDir:   defaultPayloadCacheDir,
		},
		Sync: Sync{
			FFSubsyncBinary: defaultFFSubsyncBinary,
			FFmpegBinary:    defaultFFmpegBinary,
			JobTimeout:      defaultJobTimeout,
			MaxAttempts:     defaultMaxAttempts,
			RequestTimeout:  defaultRequestTimeout,
		},
		Addon: Addon{
			ID:          defaultAddonID,
			Name:        defaultAddonName,
			Version:     defaultAddonVersion,
			Description: defaultAddonDescription,
		},
		Workflow: Workflow{
			Workers:            defaultWorkers,
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetry,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			SyncCompleted:  true,
			SyncFailed:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
