// Package clip defines the audio artifact value shared by the synthesis,
// mixing, and assembly stages.
package clip

import "time"

// Kind identifies the granularity of an audio artifact.
type Kind string

const (
	KindLine    Kind = "line"
	KindScene   Kind = "scene"
	KindEpisode Kind = "episode"
)

// Clip is a synthesized or mixed audio artifact. A clip is terminal once
// Valid is set; failed attempts are discarded rather than kept as tombstones.
type Clip struct {
	Kind       Kind
	EpisodeID  string
	SceneIndex int
	// LinePosition is meaningful for line clips only; scene and episode
	// clips carry -1.
	LinePosition int
	Character    string
	// Path is always absolute. Relative paths break under arbitrary working
	// directories and are rejected at manifest construction.
	Path     string
	Duration time.Duration
	Valid    bool
}

// NewLine constructs a line-level clip identity.
func NewLine(episodeID string, sceneIndex, position int, character, path string) Clip {
	return Clip{
		Kind:         KindLine,
		EpisodeID:    episodeID,
		SceneIndex:   sceneIndex,
		LinePosition: position,
		Character:    character,
		Path:         path,
	}
}

// NewScene constructs a scene-level clip identity.
func NewScene(episodeID string, sceneIndex int, path string) Clip {
	return Clip{
		Kind:         KindScene,
		EpisodeID:    episodeID,
		SceneIndex:   sceneIndex,
		LinePosition: -1,
		Path:         path,
	}
}

// NewEpisode constructs an episode-level clip identity.
func NewEpisode(episodeID, path string) Clip {
	return Clip{
		Kind:         KindEpisode,
		EpisodeID:    episodeID,
		SceneIndex:   -1,
		LinePosition: -1,
		Path:         path,
	}
}
