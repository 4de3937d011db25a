package script

import (
	"fmt"
	"sort"
	"strings"

	"podium/internal/sanitize"
	"podium/internal/services"
	"podium/internal/voices"
)

// ValidationError reports every structural violation found in an episode so a
// caller can fix all problems in one pass. It carries the services.ErrValidation
// marker.
type ValidationError struct {
	EpisodeID  string
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("episode %s failed validation: %s", e.EpisodeID, strings.Join(e.Violations, "; "))
}

func (e *ValidationError) Unwrap() error { return services.ErrValidation }

// Normalized is a validated episode with sanitized identifiers attached. The
// token table records the character → token mapping used for line filenames,
// which the coordinator persists alongside the episode.
type Normalized struct {
	Episode *Episode
	// EpisodeToken is the sanitized episode identifier.
	EpisodeToken string
	// Tokens maps display names (episode characters) to their assigned
	// filesystem tokens. The mapping is injective for one episode.
	Tokens *sanitize.Table
}

// Validate checks structural well-formedness of an episode against a voice
// registry snapshot. It is pure and side-effect-free: the input episode is
// not mutated, and no files are touched. On failure it returns a
// ValidationError enumerating every violation found.
func Validate(ep *Episode, registry *voices.Registry) (*Normalized, error) {
	if ep == nil {
		return nil, &ValidationError{Violations: []string{"episode is nil"}}
	}

	var violations []string

	episodeToken := ""
	if strings.TrimSpace(ep.ID) == "" {
		violations = append(violations, "episode id is empty")
	} else {
		token, err := sanitize.Token(ep.ID)
		if err != nil {
			violations = append(violations, fmt.Sprintf("episode id %q cannot be sanitized", ep.ID))
		} else {
			episodeToken = token
		}
	}

	if len(ep.Scenes) == 0 {
		violations = append(violations, "episode has no scenes")
	}

	violations = append(violations, checkSceneIndexes(ep.Scenes)...)

	table := sanitize.NewTable()
	for _, scene := range ep.Scenes {
		for _, line := range scene.Lines {
			where := fmt.Sprintf("scene %d line %d", scene.Index, line.Position)
			character := strings.TrimSpace(line.Character)
			if character == "" {
				violations = append(violations, where+": character is empty")
				continue
			}
			if strings.TrimSpace(line.Text) == "" {
				violations = append(violations, fmt.Sprintf("%s (%s): text is empty", where, character))
			}
			if registry != nil {
				if _, ok := registry.Resolve(character); !ok {
					violations = append(violations, fmt.Sprintf("%s: no voice profile for character %q", where, character))
				}
			}
			if _, err := table.Assign(character); err != nil {
				violations = append(violations, fmt.Sprintf("%s: character name %q cannot be sanitized", where, character))
			}
		}
		violations = append(violations, checkLinePositions(scene)...)
	}

	if len(violations) > 0 {
		return nil, &ValidationError{EpisodeID: ep.ID, Violations: violations}
	}

	return &Normalized{Episode: ep, EpisodeToken: episodeToken, Tokens: table}, nil
}

func checkSceneIndexes(scenes []Scene) []string {
	if len(scenes) == 0 {
		return nil
	}
	var violations []string
	indexes := make([]int, 0, len(scenes))
	seen := make(map[int]struct{}, len(scenes))
	for _, scene := range scenes {
		if _, dup := seen[scene.Index]; dup {
			violations = append(violations, fmt.Sprintf("duplicate scene index %d", scene.Index))
			continue
		}
		seen[scene.Index] = struct{}{}
		indexes = append(indexes, scene.Index)
	}
	sort.Ints(indexes)
	for i, idx := range indexes {
		if idx != i {
			violations = append(violations, fmt.Sprintf("scene indexes not contiguous from 0: %v", indexes))
			break
		}
	}
	return violations
}

func checkLinePositions(scene Scene) []string {
	if len(scene.Lines) == 0 {
		return []string{fmt.Sprintf("scene %d has no lines", scene.Index)}
	}
	positions := make([]int, 0, len(scene.Lines))
	seen := make(map[int]struct{}, len(scene.Lines))
	var violations []string
	for _, line := range scene.Lines {
		if _, dup := seen[line.Position]; dup {
			violations = append(violations, fmt.Sprintf("scene %d: duplicate line position %d", scene.Index, line.Position))
			continue
		}
		seen[line.Position] = struct{}{}
		positions = append(positions, line.Position)
	}
	sort.Ints(positions)
	for i, pos := range positions {
		if pos != i {
			violations = append(violations, fmt.Sprintf("scene %d: line positions not contiguous from 0: %v", scene.Index, positions))
			break
		}
	}
	return violations
}
