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
	c.normalizeTTS()
	c.normalizeMixing()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.EpisodesDir, err = expandPath(c.Paths.EpisodesDir); err != nil {
		return fmt.Errorf("paths.episodes_dir: %w", err)
	}
	if c.Paths.AssetsDir, err = expandPath(c.Paths.AssetsDir); err != nil {
		return fmt.Errorf("paths.assets_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTTS() {
	c.TTS.Provider = strings.ToLower(strings.TrimSpace(c.TTS.Provider))
	if c.TTS.Provider == "" {
		c.TTS.Provider = defaultTTSProvider
	}
	if c.TTS.APIKey == "" {
		switch c.TTS.Provider {
		case "openai":
			c.TTS.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		default:
			c.TTS.APIKey = strings.TrimSpace(os.Getenv("ELEVENLABS_API_KEY"))
		}
	}
	c.TTS.BaseURL = strings.TrimSpace(c.TTS.BaseURL)
	if c.TTS.BaseURL == "" && c.TTS.Provider == "elevenlabs" {
		c.TTS.BaseURL = defaultElevenLabsBaseURL
	}
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeoutSeconds
	}
	if c.TTS.MaxRetries <= 0 {
		c.TTS.MaxRetries = defaultTTSMaxRetries
	}
	if c.TTS.RetryBackoffMS <= 0 {
		c.TTS.RetryBackoffMS = defaultTTSRetryBackoffMS
	}
}

func (c *Config) normalizeMixing() {
	if strings.TrimSpace(c.Mixing.FFmpegBinary) == "" {
		c.Mixing.FFmpegBinary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Mixing.FFprobeBinary) == "" {
		c.Mixing.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Mixing.SampleRate <= 0 {
		c.Mixing.SampleRate = defaultSampleRate
	}
	if strings.TrimSpace(c.Mixing.Bitrate) == "" {
		c.Mixing.Bitrate = defaultBitrate
	}
	if c.Mixing.LineGapMS < 0 {
		c.Mixing.LineGapMS = defaultLineGapMS
	}
}

func (c *Config) normalizeWorkflow() {
	c.Workflow.Policy = strings.ToLower(strings.TrimSpace(c.Workflow.Policy))
	if c.Workflow.Policy == "" {
		c.Workflow.Policy = defaultPolicy
	}
	if c.Workflow.MaxConcurrentSynthesis <= 0 {
		c.Workflow.MaxConcurrentSynthesis = defaultMaxConcurrent
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
