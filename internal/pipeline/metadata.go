package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"podium/internal/fileutil"
	"podium/internal/script"
)

type sceneMetadata struct {
	Index            int    `json:"index"`
	Status           string `json:"status"`
	Reused           bool   `json:"reused,omitempty"`
	Dropped          bool   `json:"dropped,omitempty"`
	LinesSynthesized int    `json:"lines_synthesized"`
	LinesReused      int    `json:"lines_reused"`
	LinesFailed      int    `json:"lines_failed"`
	Path             string `json:"path,omitempty"`
}

type runMetadata struct {
	EpisodeID       string          `json:"episode_id"`
	Title           string          `json:"title,omitempty"`
	RunID           string          `json:"run_id"`
	GeneratedAt     time.Time       `json:"generated_at"`
	EpisodePath     string          `json:"episode_path"`
	DurationSeconds float64         `json:"duration_seconds,omitempty"`
	Scenes          []sceneMetadata `json:"scenes"`
}

// writeMetadata records the outcome of a completed run next to the episode
// artifacts, for downstream publishing to read.
func writeMetadata(path string, ep *script.Episode, result *Result, duration time.Duration) error {
	meta := runMetadata{
		EpisodeID:   ep.ID,
		Title:       ep.Title,
		RunID:       result.RunID,
		GeneratedAt: time.Now().UTC(),
		EpisodePath: result.EpisodePath,
		Scenes:      make([]sceneMetadata, 0, len(result.Scenes)),
	}
	if duration > 0 {
		meta.DurationSeconds = duration.Seconds()
	}
	for _, outcome := range result.Scenes {
		meta.Scenes = append(meta.Scenes, sceneMetadata{
			Index:            outcome.Index,
			Status:           string(outcome.Status),
			Reused:           outcome.Reused,
			Dropped:          outcome.Dropped,
			LinesSynthesized: outcome.LinesSynthesized,
			LinesReused:      outcome.LinesReused,
			LinesFailed:      len(outcome.Failures),
			Path:             outcome.Clip.Path,
		})
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644)
}
