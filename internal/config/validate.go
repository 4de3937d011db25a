package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateMixing(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTTS() error {
	switch c.TTS.Provider {
	case "elevenlabs", "openai":
	default:
		return fmt.Errorf("tts.provider must be \"elevenlabs\" or \"openai\", got %q", c.TTS.Provider)
	}
	if c.TTS.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/podium/config.toml"
		}
		return fmt.Errorf("tts.api_key is required. Set ELEVENLABS_API_KEY/OPENAI_API_KEY or edit %s (create with 'podium config init')", defaultPath)
	}
	if c.TTS.MaxRetries > 10 {
		return errors.New("tts.max_retries must be 10 or fewer")
	}
	return nil
}

func (c *Config) validateMixing() error {
	if c.Mixing.AmbienceAttenuation < 0 || c.Mixing.AmbienceAttenuation > 1 {
		return errors.New("mixing.ambience_attenuation must be between 0 and 1")
	}
	if c.Mixing.FadeSeconds < 0 {
		return errors.New("mixing.fade_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	switch c.Workflow.Policy {
	case "fail-fast", "best-effort":
	default:
		return fmt.Errorf("workflow.policy must be \"fail-fast\" or \"best-effort\", got %q", c.Workflow.Policy)
	}
	if c.Workflow.MaxConcurrentSynthesis > 64 {
		return errors.New("workflow.max_concurrent_synthesis must be 64 or fewer")
	}
	return nil
}
