package voices

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// VoiceProfile binds a character to a synthesis voice and its tuning
// parameters. Profiles are read-only input to the pipeline.
type VoiceProfile struct {
	Character       string  `json:"character"`
	VoiceID         string  `json:"voice_id"`
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	SpeakerBoost    bool    `json:"use_speaker_boost"`
}

// DefaultSettings returns the voice tuning applied when a profile omits it.
func DefaultSettings() VoiceProfile {
	return VoiceProfile{
		Stability:       0.5,
		SimilarityBoost: 0.75,
		Style:           0.0,
		SpeakerBoost:    true,
	}
}

// Registry is an immutable character → VoiceProfile snapshot taken at the
// start of a run.
type Registry struct {
	profiles map[string]VoiceProfile
}

// NewRegistry builds a snapshot from the provided profiles. Lookup is
// case-insensitive on the character name.
func NewRegistry(profiles []VoiceProfile) *Registry {
	m := make(map[string]VoiceProfile, len(profiles))
	for _, p := range profiles {
		if p.VoiceID == "" {
			continue
		}
		if p.Stability == 0 && p.SimilarityBoost == 0 {
			defaults := DefaultSettings()
			p.Stability = defaults.Stability
			p.SimilarityBoost = defaults.SimilarityBoost
			p.SpeakerBoost = defaults.SpeakerBoost
		}
		m[normalizeName(p.Character)] = p
	}
	return &Registry{profiles: m}
}

// Load reads a registry snapshot from a JSON file written by the voice
// registry collaborator. The file holds a list of profiles.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read voice registry %s: %w", path, err)
	}
	var profiles []VoiceProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parse voice registry %s: %w", path, err)
	}
	return NewRegistry(profiles), nil
}

// Resolve returns the profile for a character name.
func (r *Registry) Resolve(character string) (VoiceProfile, bool) {
	if r == nil {
		return VoiceProfile{}, false
	}
	p, ok := r.profiles[normalizeName(character)]
	return p, ok
}

// Characters returns the registered character names in sorted order.
func (r *Registry) Characters() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.profiles))
	for _, p := range r.profiles {
		names = append(names, p.Character)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of registered profiles.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.profiles)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
