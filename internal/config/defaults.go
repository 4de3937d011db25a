package config

const (
	defaultEpisodesDir         = "~/.local/share/podium/episodes"
	defaultAssetsDir           = "~/.local/share/podium/assets"
	defaultLogDir              = "~/.local/share/podium/logs"
	defaultTTSProvider         = "elevenlabs"
	defaultElevenLabsBaseURL   = "https://api.elevenlabs.io"
	defaultTTSModel            = "eleven_multilingual_v2"
	defaultTTSTimeoutSeconds   = 120
	defaultTTSMaxRetries       = 3
	defaultTTSRetryBackoffMS   = 500
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultAmbienceAttenuation = 0.3
	defaultLineGapMS           = 500
	defaultSampleRate          = 44100
	defaultBitrate             = "192k"
	defaultIntroSeconds        = 15
	defaultOutroSeconds        = 10
	defaultFadeSeconds         = 3
	defaultPolicy              = "best-effort"
	defaultMaxConcurrent       = 4
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			EpisodesDir: defaultEpisodesDir,
			AssetsDir:   defaultAssetsDir,
			LogDir:      defaultLogDir,
		},
		TTS: TTS{
			Provider:       defaultTTSProvider,
			BaseURL:        defaultElevenLabsBaseURL,
			Model:          defaultTTSModel,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
			MaxRetries:     defaultTTSMaxRetries,
			RetryBackoffMS: defaultTTSRetryBackoffMS,
		},
		Mixing: Mixing{
			FFmpegBinary:        defaultFFmpegBinary,
			FFprobeBinary:       defaultFFprobeBinary,
			AmbienceAttenuation: defaultAmbienceAttenuation,
			LineGapMS:           defaultLineGapMS,
			SampleRate:          defaultSampleRate,
			Bitrate:             defaultBitrate,
			IntroSeconds:        defaultIntroSeconds,
			OutroSeconds:        defaultOutroSeconds,
			FadeSeconds:         defaultFadeSeconds,
		},
		Workflow: Workflow{
			Policy:                 defaultPolicy,
			MaxConcurrentSynthesis: defaultMaxConcurrent,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
