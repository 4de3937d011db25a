package pipeline

import (
	"podium/internal/clip"
	"podium/internal/script"
	"podium/internal/store"
)

// LineFailure identifies one line that could not be synthesized.
type LineFailure struct {
	SceneIndex int
	Position   int
	Character  string
	Err        error
}

// SceneOutcome summarizes one scene after a run.
type SceneOutcome struct {
	Index  int
	Status script.Status
	// Reused marks a scene whose track came from the ledger without rework.
	Reused bool
	// Dropped marks a scene excluded from assembly under best-effort, either
	// because every line failed or because its mix failed.
	Dropped          bool
	LinesSynthesized int
	LinesReused      int
	Failures         []LineFailure
	// Err holds the scene-level failure for a dropped or failed scene.
	Err  error
	Clip clip.Clip
}

// Result reports the outcome of one pipeline run.
type Result struct {
	RunID       string
	EpisodeID   string
	Status      store.RunStatus
	EpisodePath string
	// Scenes is ordered by scene index and covers every scene in the script.
	Scenes []SceneOutcome
}

// Failures flattens every line failure across scenes.
func (r *Result) Failures() []LineFailure {
	var all []LineFailure
	for _, s := range r.Scenes {
		all = append(all, s.Failures...)
	}
	return all
}

// DroppedScenes lists the indexes of scenes excluded from the episode.
func (r *Result) DroppedScenes() []int {
	var dropped []int
	for _, s := range r.Scenes {
		if s.Dropped {
			dropped = append(dropped, s.Index)
		}
	}
	return dropped
}
