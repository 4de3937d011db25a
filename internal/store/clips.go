package store

import (
	"context"
	"fmt"
	"time"

	"podium/internal/clip"
)

// RecordClip upserts a valid clip into the ledger. Only valid clips are
// recorded; failed attempts leave no row.
func (s *Store) RecordClip(ctx context.Context, runID string, c clip.Clip) error {
	if !c.Valid {
		return fmt.Errorf("refusing to record invalid clip %s", c.Path)
	}
	return s.execWithRetry(ctx,
		`INSERT INTO clips (episode_id, kind, scene_index, line_position, character, path, duration_ms, run_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(episode_id, kind, scene_index, line_position) DO UPDATE SET
		   character = excluded.character,
		   path = excluded.path,
		   duration_ms = excluded.duration_ms,
		   run_id = excluded.run_id,
		   created_at = excluded.created_at`,
		c.EpisodeID, string(c.Kind), c.SceneIndex, c.LinePosition, c.Character,
		c.Path, c.Duration.Milliseconds(), runID, time.Now().UTC())
}

// LookupClip fetches a recorded clip by identity, or nil when absent.
func (s *Store) LookupClip(ctx context.Context, episodeID string, kind clip.Kind, sceneIndex, linePosition int) (*clip.Clip, error) {
	ctx = ensureContext(ctx)
	clips, err := s.queryClips(ctx,
		`SELECT episode_id, kind, scene_index, line_position, character, path, duration_ms
		 FROM clips WHERE episode_id = ? AND kind = ? AND scene_index = ? AND line_position = ?`,
		episodeID, string(kind), sceneIndex, linePosition)
	if err != nil || len(clips) == 0 {
		return nil, err
	}
	return &clips[0], nil
}

// EpisodeClips returns every recorded clip for an episode, ordered by scene
// index then line position.
func (s *Store) EpisodeClips(ctx context.Context, episodeID string) ([]clip.Clip, error) {
	return s.queryClips(ensureContext(ctx),
		`SELECT episode_id, kind, scene_index, line_position, character, path, duration_ms
		 FROM clips WHERE episode_id = ? ORDER BY scene_index, line_position`,
		episodeID)
}

// DeleteEpisodeClips clears the ledger for an episode, forcing a full rerun.
func (s *Store) DeleteEpisodeClips(ctx context.Context, episodeID string) error {
	return s.execWithRetry(ctx, `DELETE FROM clips WHERE episode_id = ?`, episodeID)
}

func (s *Store) queryClips(ctx context.Context, query string, args ...any) ([]clip.Clip, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query clips: %w", err)
	}
	defer rows.Close()

	var clips []clip.Clip
	for rows.Next() {
		var (
			c          clip.Clip
			kind       string
			durationMS int64
		)
		if err := rows.Scan(&c.EpisodeID, &kind, &c.SceneIndex, &c.LinePosition,
			&c.Character, &c.Path, &durationMS); err != nil {
			return nil, err
		}
		c.Kind = clip.Kind(kind)
		c.Duration = time.Duration(durationMS) * time.Millisecond
		// Rows only exist for clips that verified at record time.
		c.Valid = true
		clips = append(clips, c)
	}
	return clips, rows.Err()
}
