package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"podium/internal/clip"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenPath(filepath.Join(t.TempDir(), "podium.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.CreateRun(ctx, "run-1", "ep_001", "best-effort"); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := s.UpdateRunStatus(ctx, "run-1", RunSynthesizing); err != nil {
		t.Fatalf("UpdateRunStatus: %v", err)
	}
	if err := s.FinishRun(ctx, "run-1", RunComplete, "/episodes/ep_001/audio/full_episode.mp3", ""); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	run, err := s.LatestRun(ctx, "ep_001")
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if run == nil {
		t.Fatal("expected a run")
	}
	if run.Status != RunComplete {
		t.Fatalf("status %q, want complete", run.Status)
	}
	if run.FinishedAt == nil {
		t.Fatal("expected finished timestamp")
	}
	if run.EpisodePath == "" {
		t.Fatal("expected episode path recorded")
	}
}

func TestLatestRunUnknownEpisode(t *testing.T) {
	s := openTestStore(t)
	run, err := s.LatestRun(context.Background(), "nope")
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if run != nil {
		t.Fatal("expected nil run for unknown episode")
	}
}

func TestClipLedgerUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := clip.NewLine("ep_001", 0, 0, "aria_t_vel", "/episodes/ep_001/audio/scene_00/line_000_aria_t_vel.mp3")
	c.Duration = 2 * time.Second
	c.Valid = true
	if err := s.RecordClip(ctx, "run-1", c); err != nil {
		t.Fatalf("RecordClip: %v", err)
	}

	got, err := s.LookupClip(ctx, "ep_001", clip.KindLine, 0, 0)
	if err != nil {
		t.Fatalf("LookupClip: %v", err)
	}
	if got == nil || got.Path != c.Path || !got.Valid {
		t.Fatalf("unexpected lookup result %+v", got)
	}
	if got.Duration != 2*time.Second {
		t.Fatalf("duration %v, want 2s", got.Duration)
	}

	// Re-recording the same identity replaces the row.
	c.Path = "/elsewhere/line.mp3"
	if err := s.RecordClip(ctx, "run-2", c); err != nil {
		t.Fatalf("RecordClip upsert: %v", err)
	}
	got, err = s.LookupClip(ctx, "ep_001", clip.KindLine, 0, 0)
	if err != nil {
		t.Fatalf("LookupClip: %v", err)
	}
	if got.Path != "/elsewhere/line.mp3" {
		t.Fatalf("upsert did not replace path: %q", got.Path)
	}
}

func TestRecordClipRejectsInvalid(t *testing.T) {
	s := openTestStore(t)
	c := clip.NewLine("ep_001", 0, 0, "aria", "/tmp/a.mp3")
	if err := s.RecordClip(context.Background(), "run-1", c); err == nil {
		t.Fatal("expected rejection of invalid clip")
	}
}

func TestEpisodeClipsOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []struct{ scene, line int }{{1, 0}, {0, 1}, {0, 0}} {
		c := clip.NewLine("ep_001", id.scene, id.line, "x", "/tmp/c.mp3")
		c.Valid = true
		if err := s.RecordClip(ctx, "run-1", c); err != nil {
			t.Fatalf("RecordClip: %v", err)
		}
	}
	clips, err := s.EpisodeClips(ctx, "ep_001")
	if err != nil {
		t.Fatalf("EpisodeClips: %v", err)
	}
	if len(clips) != 3 {
		t.Fatalf("expected 3 clips, got %d", len(clips))
	}
	want := [][2]int{{0, 0}, {0, 1}, {1, 0}}
	for i, c := range clips {
		if c.SceneIndex != want[i][0] || c.LinePosition != want[i][1] {
			t.Fatalf("ordering wrong at %d: %+v", i, c)
		}
	}
}

func TestDeleteEpisodeClips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := clip.NewScene("ep_001", 0, "/tmp/scene.mp3")
	c.Valid = true
	if err := s.RecordClip(ctx, "run-1", c); err != nil {
		t.Fatalf("RecordClip: %v", err)
	}
	if err := s.DeleteEpisodeClips(ctx, "ep_001"); err != nil {
		t.Fatalf("DeleteEpisodeClips: %v", err)
	}
	clips, err := s.EpisodeClips(ctx, "ep_001")
	if err != nil {
		t.Fatalf("EpisodeClips: %v", err)
	}
	if len(clips) != 0 {
		t.Fatalf("expected ledger cleared, got %d rows", len(clips))
	}
}
