package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"podium/internal/config"
	"podium/internal/logging"
	"podium/internal/pipeline"
	"podium/internal/services/elevenlabs"
	"podium/internal/services/ffmpeg"
	"podium/internal/services/openaitts"
	"podium/internal/store"
	"podium/internal/synth"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg)
}

func (c *commandContext) openStore() (*store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg)
}

// synthBackend selects the configured synthesis provider.
func synthBackend(cfg *config.Config) (synth.Backend, error) {
	switch cfg.TTS.Provider {
	case "elevenlabs":
		return elevenlabs.NewClient(elevenlabs.Config{
			APIKey:  cfg.TTS.APIKey,
			BaseURL: cfg.TTS.BaseURL,
			ModelID: cfg.TTS.Model,
			Timeout: time.Duration(cfg.TTS.TimeoutSeconds) * time.Second,
		}), nil
	case "openai":
		return openaitts.NewClient(openaitts.Config{
			APIKey: cfg.TTS.APIKey,
			Model:  cfg.TTS.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown tts provider %q", cfg.TTS.Provider)
	}
}

func audioClient(cfg *config.Config) ffmpeg.Client {
	return ffmpeg.NewCLI(
		ffmpeg.WithBinaries(cfg.Mixing.FFmpegBinary, cfg.Mixing.FFprobeBinary),
		ffmpeg.WithEncoding(cfg.Mixing.SampleRate, cfg.Mixing.Bitrate),
	)
}

// coordinator wires a full pipeline from configuration.
func (c *commandContext) coordinator(st *store.Store, logger *slog.Logger) (*pipeline.Coordinator, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	backend, err := synthBackend(cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg, st, backend, audioClient(cfg), logger), nil
}
