package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	t.Setenv("ELEVENLABS_API_KEY", "test-key")

	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if cfg.TTS.Provider != "elevenlabs" {
		t.Fatalf("unexpected default provider %q", cfg.TTS.Provider)
	}
	if cfg.Workflow.Policy != "best-effort" {
		t.Fatalf("unexpected default policy %q", cfg.Workflow.Policy)
	}
	if !filepath.IsAbs(cfg.Paths.EpisodesDir) {
		t.Fatalf("episodes dir not absolutized: %q", cfg.Paths.EpisodesDir)
	}
}

func TestLoadParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
episodes_dir = "` + filepath.Join(dir, "eps") + `"

[tts]
provider = "openai"
api_key = "sk-test"
model = "tts-1"

[workflow]
policy = "fail-fast"
max_concurrent_synthesis = 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s, got %s (exists=%v)", path, resolved, exists)
	}
	if cfg.TTS.Provider != "openai" || cfg.TTS.Model != "tts-1" {
		t.Fatalf("tts section not parsed: %+v", cfg.TTS)
	}
	if cfg.Workflow.Policy != "fail-fast" || cfg.Workflow.MaxConcurrentSynthesis != 2 {
		t.Fatalf("workflow section not parsed: %+v", cfg.Workflow)
	}
	// Unset fields keep defaults.
	if cfg.Mixing.AmbienceAttenuation != defaultAmbienceAttenuation {
		t.Fatalf("expected default attenuation, got %v", cfg.Mixing.AmbienceAttenuation)
	}
}

func TestValidateRejectsBadPolicy(t *testing.T) {
	cfg := Default()
	cfg.TTS.APIKey = "k"
	cfg.Workflow.Policy = "sometimes"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "workflow.policy") {
		t.Fatalf("expected policy error, got %v", err)
	}
}

func TestValidateRequiresAPIKey(t *testing.T) {
	cfg := Default()
	cfg.Workflow.Policy = "best-effort"
	cfg.TTS.APIKey = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "tts.api_key") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestValidateRejectsAttenuationOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.TTS.APIKey = "k"
	cfg.Mixing.AmbienceAttenuation = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected attenuation error")
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("expected overwrite refusal")
	}
}
