package config

const (
	defaultConfigPath                = "~/.config/ariacut/config.toml"
	defaultStorageDir                = "~/.local/share/ariacut"
	defaultLogDir                    = "~/.local/share/ariacut/logs"
	defaultExportDir                 = "~/ariacut/exports"
	defaultLogRetentionDays          = 60
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultLLMBaseURL                = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel                  = "google/gemini-2.5-pro"
	defaultLLMReferer                = "https://github.com/ariacut/ariacut"
	defaultLLMTitle                  = "ariacut"
	defaultLLMTimeoutSeconds         = 180
	defaultWindowSpanSeconds         = 120
	defaultOverlayHoldSeconds        = 4
	defaultPlayResX                  = 1080
	defaultPlayResY                  = 1920
	defaultOverlayMaxChars           = 35
	defaultFFmpegBinary              = "ffmpeg"
	defaultFFprobeBinary             = "ffprobe"
	defaultYtDlpBinary               = "yt-dlp"
	defaultDownloadFormat            = "bestvideo[height<=1080][ext=mp4]+bestaudio[ext=m4a]/best[height<=1080]"
	defaultWorkflowWorkers           = 2
	defaultWorkflowPollInterval      = 5
	defaultWorkflowStageTimeout      = 1800
	defaultWorkflowHeartbeatInterval = 15
	defaultWorkflowHeartbeatTimeout  = 120
)

// defaultTargetLanguages are the subtitle languages of the channel lineup.
var defaultTargetLanguages = []string{"en", "pt", "es", "de", "fr", "it", "pl"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StorageDir: defaultStorageDir,
			LogDir:     defaultLogDir,
			ExportDir:  defaultExportDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Alignment: Alignment{
			High:                   0.85,
			Medium:                 0.50,
			Containment:            0.85,
			TextWeight:             0.7,
			ProximityWeight:        0.3,
			ProximityWindowSeconds: 30,
			Anchor:                 0.5,
			AnchorTextHigh:         0.75,
			RouteAMean:             0.85,
			RouteBMean:             0.60,
			RouteBMaxLowFraction:   0.30,
		},
		Window: Window{
			DefaultSpanSeconds: defaultWindowSpanSeconds,
			OverlayHoldSeconds: defaultOverlayHoldSeconds,
		},
		Translation: Translation{
			TargetLanguages: append([]string(nil), defaultTargetLanguages...),
		},
		Subtitles: Subtitles{
			PlayResX:        defaultPlayResX,
			PlayResY:        defaultPlayResY,
			OverlayMaxChars: defaultOverlayMaxChars,
		},
		Media: Media{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			YtDlpBinary:    defaultYtDlpBinary,
			DownloadFormat: defaultDownloadFormat,
		},
		Workflow: Workflow{
			PollInterval:        defaultWorkflowPollInterval,
			ErrorRetryInterval:  10,
			Workers:             defaultWorkflowWorkers,
			StageTimeoutSeconds: defaultWorkflowStageTimeout,
			HeartbeatInterval:   defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:    defaultWorkflowHeartbeatTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
