package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RunStatus tracks a pipeline run through its stages.
type RunStatus string

const (
	RunValidated    RunStatus = "validated"
	RunSynthesizing RunStatus = "synthesizing"
	RunMixing       RunStatus = "mixing"
	RunAssembling   RunStatus = "assembling"
	RunComplete     RunStatus = "complete"
	RunFailed       RunStatus = "failed"
)

// Run is one recorded pipeline invocation for an episode.
type Run struct {
	ID           string
	EpisodeID    string
	Status       RunStatus
	Policy       string
	ErrorMessage string
	EpisodePath  string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// CreateRun records the start of a run in the validated state.
func (s *Store) CreateRun(ctx context.Context, runID, episodeID, policy string) error {
	return s.execWithRetry(ctx,
		`INSERT INTO runs (id, episode_id, status, policy, started_at) VALUES (?, ?, ?, ?, ?)`,
		runID, episodeID, string(RunValidated), policy, time.Now().UTC())
}

// UpdateRunStatus advances a run to the given stage.
func (s *Store) UpdateRunStatus(ctx context.Context, runID string, status RunStatus) error {
	return s.execWithRetry(ctx,
		`UPDATE runs SET status = ? WHERE id = ?`, string(status), runID)
}

// FinishRun marks a run complete or failed with its outcome.
func (s *Store) FinishRun(ctx context.Context, runID string, status RunStatus, episodePath, errorMessage string) error {
	now := time.Now().UTC()
	return s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, episode_path = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		string(status), episodePath, errorMessage, now, runID)
}

// LatestRun returns the most recent run for an episode, or nil when the
// episode has never been run.
func (s *Store) LatestRun(ctx context.Context, episodeID string) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, episode_id, status, policy, error_message, episode_path, started_at, finished_at
		 FROM runs WHERE episode_id = ? ORDER BY started_at DESC LIMIT 1`, episodeID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// ListRuns returns all recorded runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, episode_id, status, policy, error_message, episode_path, started_at, finished_at
		 FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run      Run
		status   string
		finished sql.NullTime
	)
	if err := row.Scan(&run.ID, &run.EpisodeID, &status, &run.Policy,
		&run.ErrorMessage, &run.EpisodePath, &run.StartedAt, &finished); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
