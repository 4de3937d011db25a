package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"podium/internal/script"
	"podium/internal/services"
	"podium/internal/store"
	"podium/internal/synth"
	"podium/internal/testsupport"
	"podium/internal/voices"
)

// newSynthForTest swaps the coordinator's synthesizer for one backed by the
// given fake, with fast retries.
func newSynthForTest(backend synth.Backend) *synth.Synthesizer {
	return synth.New(backend, synth.Options{MaxAttempts: 3, InitialBackoff: time.Millisecond}, nil)
}

func newCoordinator(t *testing.T) (*Coordinator, *testsupport.FakeSynth, *testsupport.FakeAudio, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.NewStore(t, cfg)
	backend := &testsupport.FakeSynth{}
	audio := &testsupport.FakeAudio{}
	return New(cfg, st, backend, audio, nil), backend, audio, st
}

func TestRunCompletesEpisode(t *testing.T) {
	c, backend, audio, st := newCoordinator(t)
	ep := testsupport.TwoSceneEpisode()
	registry := testsupport.NewRegistry("Aria", "Jalen")

	result, err := c.Run(context.Background(), ep, registry, PolicyBestEffort)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != store.RunComplete {
		t.Fatalf("status %q, want complete", result.Status)
	}
	if result.EpisodePath == "" {
		t.Fatal("expected episode path")
	}
	if _, err := os.Stat(result.EpisodePath); err != nil {
		t.Fatalf("episode file: %v", err)
	}
	if filepath.Base(result.EpisodePath) != "full_episode.mp3" {
		t.Fatalf("unexpected episode filename %s", result.EpisodePath)
	}
	if got := len(backend.Calls()); got != 4 {
		t.Fatalf("expected 4 synthesis calls, got %d", got)
	}
	if len(audio.Tags) != 1 || audio.Tags[0]["title"] != "First Contact" {
		t.Fatalf("expected episode tagged with title, got %v", audio.Tags)
	}

	run, err := st.LatestRun(context.Background(), "ep_001")
	if err != nil || run == nil {
		t.Fatalf("LatestRun: %v %v", run, err)
	}
	if run.Status != store.RunComplete {
		t.Fatalf("recorded status %q", run.Status)
	}

	// Line clips land in numbered scene directories.
	episodeDir := filepath.Dir(filepath.Dir(result.EpisodePath))
	if _, err := os.Stat(filepath.Join(episodeDir, "audio", "scene_00", "line_000_aria.mp3")); err != nil {
		t.Fatalf("line clip: %v", err)
	}
	if _, err := os.Stat(filepath.Join(episodeDir, "audio", "scene_01", "scene_audio.mp3")); err != nil {
		t.Fatalf("scene track: %v", err)
	}
}

func TestRunValidationFailureBeforeWork(t *testing.T) {
	c, backend, _, _ := newCoordinator(t)
	ep := testsupport.TwoSceneEpisode()
	ep.Scenes[0].Lines[0].Character = ""

	_, err := c.Run(context.Background(), ep, testsupport.NewRegistry("Aria", "Jalen"), PolicyBestEffort)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(backend.Calls()) != 0 {
		t.Fatal("no synthesis may happen on validation failure")
	}
}

func TestRunBestEffortDropsFailedScene(t *testing.T) {
	c, _, audio, _ := newCoordinator(t)
	ep := testsupport.TwoSceneEpisode()
	registry := testsupport.NewRegistry("Aria", "Jalen")

	backend := &testsupport.FakeSynth{FailTexts: map[string]bool{
		"We made it.": true,
		"Barely.":     true,
	}}
	c.synth = newSynthForTest(backend)

	result, err := c.Run(context.Background(), ep, registry, PolicyBestEffort)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != store.RunComplete {
		t.Fatalf("status %q, want complete", result.Status)
	}
	dropped := result.DroppedScenes()
	if len(dropped) != 1 || dropped[0] != 0 {
		t.Fatalf("expected scene 0 dropped, got %v", dropped)
	}
	if len(result.Failures()) != 2 {
		t.Fatalf("expected 2 line failures, got %d", len(result.Failures()))
	}
	if !errors.Is(result.Scenes[0].Err, services.ErrMixing) {
		t.Fatalf("dropped scene should carry a mixing error, got %v", result.Scenes[0].Err)
	}
	// The episode manifest must not reference the dropped scene.
	final := audio.Manifests[len(audio.Manifests)-1]
	if strings.Contains(final, "scene_00") {
		t.Fatalf("dropped scene present in episode manifest: %s", final)
	}
}

func TestRunLineFailureShrinksSceneUnderFailFast(t *testing.T) {
	c, _, _, _ := newCoordinator(t)
	ep := testsupport.TwoSceneEpisode()
	registry := testsupport.NewRegistry("Aria", "Jalen")

	backend := &testsupport.FakeSynth{FailTexts: map[string]bool{"We made it.": true}}
	c.synth = newSynthForTest(backend)

	result, err := c.Run(context.Background(), ep, registry, PolicyFailFast)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != store.RunComplete {
		t.Fatalf("status %q, want complete", result.Status)
	}
	scene := result.Scenes[0]
	if scene.Dropped || scene.Status != script.StatusComplete {
		t.Fatalf("scene 0 should proceed with its surviving line: %+v", scene)
	}
	if len(scene.Failures) != 1 || scene.Failures[0].Character != "Aria" {
		t.Fatalf("expected one reported line failure for Aria, got %+v", scene.Failures)
	}
	if !errors.Is(scene.Failures[0].Err, services.ErrSynthesis) {
		t.Fatalf("line failure should carry a synthesis error, got %v", scene.Failures[0].Err)
	}
	if scene.LinesSynthesized != 1 {
		t.Fatalf("expected 1 synthesized line in scene 0, got %d", scene.LinesSynthesized)
	}
}

func TestRunFailFastAbortsOnFailedScene(t *testing.T) {
	c, _, _, st := newCoordinator(t)
	ep := testsupport.TwoSceneEpisode()
	registry := testsupport.NewRegistry("Aria", "Jalen")

	backend := &testsupport.FakeSynth{FailTexts: map[string]bool{
		"We made it.": true,
		"Barely.":     true,
	}}
	c.synth = newSynthForTest(backend)

	result, err := c.Run(context.Background(), ep, registry, PolicyFailFast)
	if !errors.Is(err, services.ErrMixing) {
		t.Fatalf("expected mixing error for a scene with no valid lines, got %v", err)
	}
	if result.Status != store.RunFailed {
		t.Fatalf("status %q, want failed", result.Status)
	}
	run, _ := st.LatestRun(context.Background(), "ep_001")
	if run == nil || run.Status != store.RunFailed {
		t.Fatalf("recorded run %+v", run)
	}
	if run.ErrorMessage == "" {
		t.Fatal("expected error message recorded")
	}
}

func TestRunBestEffortSurvivesMixFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.NewStore(t, cfg)
	audio := &testsupport.FakeAudio{FailConcats: []string{"scene_00"}}
	c := New(cfg, st, &testsupport.FakeSynth{}, audio, nil)
	ep := testsupport.TwoSceneEpisode()
	registry := testsupport.NewRegistry("Aria", "Jalen")

	result, err := c.Run(context.Background(), ep, registry, PolicyBestEffort)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != store.RunComplete {
		t.Fatalf("status %q, want complete", result.Status)
	}
	dropped := result.DroppedScenes()
	if len(dropped) != 1 || dropped[0] != 0 {
		t.Fatalf("expected scene 0 dropped, got %v", dropped)
	}
	if !errors.Is(result.Scenes[0].Err, services.ErrMixing) {
		t.Fatalf("dropped scene should carry its mixing error, got %v", result.Scenes[0].Err)
	}
	final := audio.Manifests[len(audio.Manifests)-1]
	if strings.Contains(final, "scene_00") {
		t.Fatalf("dropped scene present in episode manifest: %s", final)
	}
	if !strings.Contains(final, "scene_01") {
		t.Fatalf("surviving scene missing from episode manifest: %s", final)
	}
}

// rendezvousBackend blocks every synthesis call until released, so a test
// can observe how many calls are in flight at once.
type rendezvousBackend struct {
	arrived chan struct{}
	release chan struct{}
}

func (b *rendezvousBackend) Synthesize(ctx context.Context, text string, profile voices.VoiceProfile) ([]byte, error) {
	b.arrived <- struct{}{}
	select {
	case <-b.release:
		return []byte("audio:" + text), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestRunDispatchesLinesWithinSceneConcurrently(t *testing.T) {
	c, _, _, _ := newCoordinator(t)
	backend := &rendezvousBackend{
		arrived: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	c.synth = newSynthForTest(backend)

	ep := &script.Episode{
		ID:    "ep_002",
		Title: "Solo Scene",
		Scenes: []script.Scene{{
			Index:   0,
			Summary: "Engine room",
			Lines: []script.Line{
				{Character: "Aria", Text: "Line one.", Position: 0},
				{Character: "Jalen", Text: "Line two.", Position: 1},
			},
		}},
	}
	registry := testsupport.NewRegistry("Aria", "Jalen")

	done := make(chan error, 1)
	go func() {
		_, err := c.Run(context.Background(), ep, registry, PolicyFailFast)
		done <- err
	}()

	// Both lines must be in flight before either is released.
	for i := 0; i < 2; i++ {
		select {
		case <-backend.arrived:
		case <-time.After(2 * time.Second):
			t.Fatal("lines within a scene did not synthesize concurrently")
		}
	}
	close(backend.release)
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunRetriesTransientFailures(t *testing.T) {
	c, _, _, _ := newCoordinator(t)
	ep := testsupport.TwoSceneEpisode()
	registry := testsupport.NewRegistry("Aria", "Jalen")

	// Each line fails twice then succeeds on the third attempt.
	backend := &testsupport.FakeSynth{FailFirst: 2}
	c.synth = newSynthForTest(backend)

	result, err := c.Run(context.Background(), ep, registry, PolicyFailFast)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != store.RunComplete {
		t.Fatalf("status %q, want complete", result.Status)
	}
	if got := backend.Attempts("We made it."); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestRunIdempotentReentry(t *testing.T) {
	c, backend, _, _ := newCoordinator(t)
	ep := testsupport.TwoSceneEpisode()
	registry := testsupport.NewRegistry("Aria", "Jalen")

	if _, err := c.Run(context.Background(), ep, registry, PolicyBestEffort); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := len(backend.Calls())

	result, err := c.Run(context.Background(), ep, registry, PolicyBestEffort)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := len(backend.Calls()); got != first {
		t.Fatalf("re-entry must not re-synthesize: %d calls after first run, %d after second", first, got)
	}
	for _, outcome := range result.Scenes {
		if !outcome.Reused {
			t.Fatalf("scene %d not reused on re-entry", outcome.Index)
		}
	}
}

func TestRunResynthesizesVanishedClips(t *testing.T) {
	c, backend, _, _ := newCoordinator(t)
	ep := testsupport.TwoSceneEpisode()
	registry := testsupport.NewRegistry("Aria", "Jalen")

	result, err := c.Run(context.Background(), ep, registry, PolicyBestEffort)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := len(backend.Calls())

	// Remove one scene track; only that scene should be rebuilt.
	audioDir := filepath.Dir(result.EpisodePath)
	if err := os.Remove(filepath.Join(audioDir, "scene_01", "scene_audio.mp3")); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Run(context.Background(), ep, registry, PolicyBestEffort); err != nil {
		t.Fatalf("second run: %v", err)
	}
	// Scene 1's line clips are still valid in the ledger, so the rebuild
	// remixes without new synthesis.
	if got := len(backend.Calls()); got != first {
		t.Fatalf("expected no new synthesis, got %d calls vs %d", got, first)
	}
}

func TestRunCanonicalOrderIndependentOfCompletion(t *testing.T) {
	c, _, audio, _ := newCoordinator(t)
	ep := testsupport.TwoSceneEpisode()
	registry := testsupport.NewRegistry("Aria", "Jalen")

	// Latency makes completion order racy; output order must not be.
	backend := &testsupport.FakeSynth{Delay: 5 * time.Millisecond}
	c.synth = newSynthForTest(backend)

	if _, err := c.Run(context.Background(), ep, registry, PolicyBestEffort); err != nil {
		t.Fatalf("Run: %v", err)
	}
	final := audio.Manifests[len(audio.Manifests)-1]
	first := strings.Index(final, "scene_00")
	second := strings.Index(final, "scene_01")
	if first == -1 || second == -1 || first > second {
		t.Fatalf("episode manifest out of order: %s", final)
	}
}

func TestRunConcurrentInvocationRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.NewStore(t, cfg)
	ep := testsupport.TwoSceneEpisode()
	registry := testsupport.NewRegistry("Aria", "Jalen")

	slow := &testsupport.FakeSynth{Delay: 200 * time.Millisecond}
	c1 := New(cfg, st, slow, &testsupport.FakeAudio{}, nil)
	c2 := New(cfg, st, &testsupport.FakeSynth{}, &testsupport.FakeAudio{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := c1.Run(context.Background(), ep, registry, PolicyBestEffort)
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)

	_, err := c2.Run(context.Background(), ep, registry, PolicyBestEffort)
	if !errors.Is(err, services.ErrConcurrentRun) {
		t.Fatalf("expected concurrent run rejection, got %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

func TestRunWritesMetadata(t *testing.T) {
	c, _, _, _ := newCoordinator(t)
	ep := testsupport.TwoSceneEpisode()
	registry := testsupport.NewRegistry("Aria", "Jalen")

	result, err := c.Run(context.Background(), ep, registry, PolicyBestEffort)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	episodeDir := filepath.Dir(filepath.Dir(result.EpisodePath))
	data, err := os.ReadFile(filepath.Join(episodeDir, "generation_metadata.json"))
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	var meta struct {
		EpisodeID string `json:"episode_id"`
		RunID     string `json:"run_id"`
		Scenes    []struct {
			Status string `json:"status"`
		} `json:"scenes"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatalf("parse metadata: %v", err)
	}
	if meta.EpisodeID != "ep_001" || meta.RunID != result.RunID {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if len(meta.Scenes) != 2 || meta.Scenes[0].Status != string(script.StatusComplete) {
		t.Fatalf("unexpected scene metadata %+v", meta.Scenes)
	}
}

func TestRunWithAmbienceAndBookends(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.NewStore(t, cfg)
	audio := &testsupport.FakeAudio{}
	c := New(cfg, st, &testsupport.FakeSynth{}, audio, nil)

	ep := testsupport.TwoSceneEpisode()
	ep.Scenes[0].Ambience = testsupport.WriteAsset(t, cfg, "station_hum.mp3")
	ep.Intro = testsupport.WriteAsset(t, cfg, "intro.mp3")
	ep.Outro = testsupport.WriteAsset(t, cfg, "outro.mp3")

	if _, err := c.Run(context.Background(), ep, testsupport.NewRegistry("Aria", "Jalen"), PolicyBestEffort); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if audio.Overlays != 1 {
		t.Fatalf("expected one ambience overlay, got %d", audio.Overlays)
	}
	final := audio.Manifests[len(audio.Manifests)-1]
	if !strings.Contains(final, "intro_trimmed.mp3") || !strings.Contains(final, "outro_trimmed.mp3") {
		t.Fatalf("bookends missing from episode manifest: %s", final)
	}
}

func TestResetClearsLedger(t *testing.T) {
	c, backend, _, _ := newCoordinator(t)
	ep := testsupport.TwoSceneEpisode()
	registry := testsupport.NewRegistry("Aria", "Jalen")

	if _, err := c.Run(context.Background(), ep, registry, PolicyBestEffort); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := len(backend.Calls())

	if err := c.Reset(context.Background(), ep.ID); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := c.Run(context.Background(), ep, registry, PolicyBestEffort); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := len(backend.Calls()); got != first*2 {
		t.Fatalf("expected full re-synthesis after reset: %d calls, want %d", got, first*2)
	}
}

func TestParsePolicy(t *testing.T) {
	if _, err := ParsePolicy("bogus"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	p, err := ParsePolicy("")
	if err != nil || p != PolicyBestEffort {
		t.Fatalf("empty policy should default to best-effort, got %v %v", p, err)
	}
}
