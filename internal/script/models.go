package script

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Status represents the lifecycle of an episode or scene during a run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// Line is one character's utterance within a scene. Position defines audio
// order and is significant; identity alone is not enough.
type Line struct {
	Character string `json:"character"`
	Text      string `json:"text"`
	Position  int    `json:"position"`
}

// Scene is an ordered unit of dialogue, optionally paired with an ambience
// asset. Index defines concatenation order within the episode.
type Scene struct {
	Index    int    `json:"index"`
	Summary  string `json:"summary"`
	Lines    []Line `json:"lines"`
	Ambience string `json:"ambience,omitempty"`
	Status   Status `json:"status,omitempty"`
}

// Episode is one complete script structure handed over by the script
// generation collaborator. The pipeline treats everything except status
// fields as read-only.
type Episode struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Scenes []Scene `json:"scenes"`
	Intro  string  `json:"intro,omitempty"`
	Outro  string  `json:"outro,omitempty"`
	Status Status  `json:"status,omitempty"`
}

// Load reads an episode script from the JSON file the script provider writes.
func Load(path string) (*Episode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", path, err)
	}
	var ep Episode
	if err := json.Unmarshal(data, &ep); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	if strings.TrimSpace(ep.ID) == "" {
		return nil, fmt.Errorf("script %s has no episode id", path)
	}
	return &ep, nil
}

// Characters returns the distinct character names appearing in the episode,
// in first-appearance order.
func (e *Episode) Characters() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, scene := range e.Scenes {
		for _, line := range scene.Lines {
			name := strings.TrimSpace(line.Character)
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

// LineCount returns the total number of lines across all scenes.
func (e *Episode) LineCount() int {
	total := 0
	for _, scene := range e.Scenes {
		total += len(scene.Lines)
	}
	return total
}
