package voices

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveIsCaseInsensitive(t *testing.T) {
	reg := NewRegistry([]VoiceProfile{
		{Character: "Aria T'Vel", VoiceID: "v1"},
		{Character: "Jalen", VoiceID: "v2", Stability: 0.8, SimilarityBoost: 0.6},
	})

	p, ok := reg.Resolve("aria t'vel")
	if !ok {
		t.Fatal("expected profile for Aria T'Vel")
	}
	if p.VoiceID != "v1" {
		t.Fatalf("unexpected voice %q", p.VoiceID)
	}
	// Omitted settings pick up defaults.
	if p.Stability != 0.5 || p.SimilarityBoost != 0.75 || !p.SpeakerBoost {
		t.Fatalf("defaults not applied: %+v", p)
	}

	p, _ = reg.Resolve("JALEN")
	if p.Stability != 0.8 {
		t.Fatalf("explicit settings overwritten: %+v", p)
	}

	if _, ok := reg.Resolve("Unknown"); ok {
		t.Fatal("expected miss for unregistered character")
	}
}

func TestNewRegistrySkipsMissingVoiceID(t *testing.T) {
	reg := NewRegistry([]VoiceProfile{{Character: "Ghost"}})
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", reg.Len())
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voices.json")
	content := `[
  {"character": "Aria T'Vel", "voice_id": "v1", "stability": 0.4, "similarity_boost": 0.7},
  {"character": "Jalen", "voice_id": "v2"}
]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 profiles, got %d", reg.Len())
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
