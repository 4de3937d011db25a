package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"podium/internal/assemble"
	"podium/internal/clip"
	"podium/internal/config"
	"podium/internal/fileutil"
	"podium/internal/logging"
	"podium/internal/mix"
	"podium/internal/script"
	"podium/internal/services"
	"podium/internal/services/ffmpeg"
	"podium/internal/store"
	"podium/internal/synth"
	"podium/internal/voices"
)

// Coordinator drives an episode through validation, synthesis, mixing, and
// assembly. One Coordinator serves many runs; per-run state lives on the
// stack of Run.
type Coordinator struct {
	cfg       *config.Config
	store     *store.Store
	synth     *synth.Synthesizer
	mixer     *mix.Mixer
	assembler *assemble.Assembler
	audio     ffmpeg.Client
	logger    *slog.Logger
	// sem bounds concurrent synthesis requests across all scenes.
	sem *semaphore.Weighted
}

// New wires a Coordinator from configuration and the synthesis and audio
// backends.
func New(cfg *config.Config, st *store.Store, backend synth.Backend, audio ffmpeg.Client, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	limit := int64(cfg.Workflow.MaxConcurrentSynthesis)
	if limit <= 0 {
		limit = 4
	}
	return &Coordinator{
		cfg:   cfg,
		store: st,
		synth: synth.New(backend, synth.Options{
			MaxAttempts:    cfg.TTS.MaxRetries,
			InitialBackoff: time.Duration(cfg.TTS.RetryBackoffMS) * time.Millisecond,
		}, logger),
		mixer: mix.New(audio, mix.Options{
			LineGap:             time.Duration(cfg.Mixing.LineGapMS) * time.Millisecond,
			AmbienceAttenuation: cfg.Mixing.AmbienceAttenuation,
		}, logger),
		assembler: assemble.New(audio, assemble.Options{
			IntroLimit: time.Duration(cfg.Mixing.IntroSeconds) * time.Second,
			OutroLimit: time.Duration(cfg.Mixing.OutroSeconds) * time.Second,
			Fade:       time.Duration(cfg.Mixing.FadeSeconds) * time.Second,
		}, logger),
		audio:  audio,
		logger: logger.With(logging.String(logging.FieldComponent, "pipeline")),
		sem:    semaphore.NewWeighted(limit),
	}
}

// Run executes the full pipeline for one episode. Validation failures abort
// before any backend work; afterwards line failures shrink their scene and
// the configured policy decides whether a failed scene aborts the run or is
// dropped from the episode.
func (c *Coordinator) Run(ctx context.Context, ep *script.Episode, registry *voices.Registry, policy Policy) (*Result, error) {
	normalized, err := script.Validate(ep, registry)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx = services.WithEpisodeID(ctx, ep.ID)
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, c.logger)

	episodeDir := c.cfg.EpisodeDir(normalized.EpisodeToken)
	audioDir := filepath.Join(episodeDir, "audio")
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrFileSystem, "pipeline", "create episode directory", "", err)
	}

	// One run per episode at a time; a second invocation fails immediately
	// instead of corrupting in-progress artifacts.
	lock := flock.New(filepath.Join(episodeDir, "episode.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrFileSystem, "pipeline", "acquire episode lock", "", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConcurrentRun, "pipeline", "acquire episode lock",
			fmt.Sprintf("episode %s is already being processed", ep.ID), nil)
	}
	defer func() { _ = lock.Unlock() }()

	if err := c.store.CreateRun(ctx, runID, ep.ID, string(policy)); err != nil {
		return nil, services.Wrap(services.ErrFileSystem, "pipeline", "record run", "", err)
	}

	result := &Result{RunID: runID, EpisodeID: ep.ID, Status: store.RunFailed}
	logger.Info("run started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("policy", string(policy)),
		logging.Int("scenes", len(ep.Scenes)),
		logging.Int("lines", ep.LineCount()),
	)

	outcomes, runErr := c.runScenes(ctx, normalized, registry, policy, audioDir, runID)
	result.Scenes = outcomes
	if runErr != nil {
		c.finishFailed(ctx, runID, result, runErr, logger)
		return result, runErr
	}

	episodePath := filepath.Join(audioDir, "full_episode.mp3")
	assembled, runErr := c.assembleEpisode(ctx, ep, outcomes, episodePath, runID)
	if runErr != nil {
		c.finishFailed(ctx, runID, result, runErr, logger)
		return result, runErr
	}

	result.Status = store.RunComplete
	result.EpisodePath = assembled.Episode.Path
	if err := writeMetadata(filepath.Join(episodeDir, "generation_metadata.json"), ep, result, assembled.Episode.Duration); err != nil {
		logger.Warn("metadata write failed", logging.Error(err))
	}
	if err := c.store.FinishRun(ctx, runID, store.RunComplete, result.EpisodePath, ""); err != nil {
		logger.Warn("run record update failed", logging.Error(err))
	}

	logger.Info("run complete",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("episode_path", result.EpisodePath),
		logging.Int("dropped_scenes", len(result.DroppedScenes())),
	)
	return result, nil
}

func (c *Coordinator) finishFailed(ctx context.Context, runID string, result *Result, runErr error, logger *slog.Logger) {
	result.Status = store.RunFailed
	if err := c.store.FinishRun(ctx, runID, store.RunFailed, "", runErr.Error()); err != nil {
		logger.Warn("run record update failed", logging.Error(err))
	}
	logger.Error("run failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.Error(runErr),
	)
}

// runScenes synthesizes and mixes every scene, bounded by the shared
// semaphore. Scenes proceed independently; each mixes as soon as its own
// lines resolve.
func (c *Coordinator) runScenes(ctx context.Context, normalized *script.Normalized, registry *voices.Registry, policy Policy, audioDir, runID string) ([]SceneOutcome, error) {
	ctx = services.WithStage(ctx, string(store.RunSynthesizing))
	ep := normalized.Episode

	outcomes := make([]SceneOutcome, len(ep.Scenes))
	var mu sync.Mutex

	if err := c.store.UpdateRunStatus(ctx, runID, store.RunSynthesizing); err != nil {
		return nil, services.Wrap(services.ErrFileSystem, "pipeline", "record stage", "", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, scene := range ep.Scenes {
		g.Go(func() error {
			outcome, err := c.runScene(gctx, normalized, registry, policy, audioDir, runID, scene)
			mu.Lock()
			outcomes[i] = outcome
			mu.Unlock()
			return err
		})
	}
	err := g.Wait()
	sortOutcomes(outcomes)
	if err != nil {
		return outcomes, err
	}
	if err := c.store.UpdateRunStatus(ctx, runID, store.RunMixing); err != nil {
		return outcomes, services.Wrap(services.ErrFileSystem, "pipeline", "record stage", "", err)
	}
	return outcomes, nil
}

func sortOutcomes(outcomes []SceneOutcome) {
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Index < outcomes[j].Index })
}

func (c *Coordinator) runScene(ctx context.Context, normalized *script.Normalized, registry *voices.Registry, policy Policy, audioDir, runID string, scene script.Scene) (SceneOutcome, error) {
	ctx = services.WithScene(ctx, scene.Index)
	logger := logging.WithContext(ctx, c.logger)
	ep := normalized.Episode

	outcome := SceneOutcome{Index: scene.Index, Status: script.StatusInProgress}
	sceneDir := filepath.Join(audioDir, fmt.Sprintf("scene_%02d", scene.Index))
	scenePath := filepath.Join(sceneDir, "scene_audio.mp3")

	// A scene already in the ledger with an intact track needs no rework.
	if recorded, err := c.store.LookupClip(ctx, ep.ID, clip.KindScene, scene.Index, -1); err == nil && recorded != nil {
		if fileutil.VerifyArtifact(recorded.Path) == nil {
			outcome.Status = script.StatusComplete
			outcome.Reused = true
			outcome.Clip = *recorded
			logger.Info("scene reused from ledger")
			return outcome, nil
		}
	}

	// Lines are independent; dispatch them together and let the shared
	// semaphore bound how many synthesize at once. A failed line shrinks the
	// scene rather than aborting it, under either policy.
	type lineSlot struct {
		clip   clip.Clip
		reused bool
		ok     bool
	}
	slots := make([]lineSlot, len(scene.Lines))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i, line := range scene.Lines {
		g.Go(func() error {
			lineClip, reused, err := c.resolveLine(gctx, normalized, registry, sceneDir, runID, scene.Index, line)
			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				mu.Lock()
				outcome.Failures = append(outcome.Failures, LineFailure{
					SceneIndex: scene.Index,
					Position:   line.Position,
					Character:  line.Character,
					Err:        err,
				})
				mu.Unlock()
				return nil
			}
			slots[i] = lineSlot{clip: lineClip, reused: reused, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		outcome.Status = script.StatusFailed
		return outcome, err
	}
	sort.Slice(outcome.Failures, func(i, j int) bool {
		return outcome.Failures[i].Position < outcome.Failures[j].Position
	})

	lines := make([]clip.Clip, 0, len(scene.Lines))
	for _, slot := range slots {
		if !slot.ok {
			continue
		}
		if slot.reused {
			outcome.LinesReused++
		} else {
			outcome.LinesSynthesized++
		}
		lines = append(lines, slot.clip)
	}

	if len(lines) == 0 {
		err := services.Wrap(services.ErrMixing, "mixing", "collect line clips",
			fmt.Sprintf("scene %d has no valid line clips", scene.Index), nil)
		return c.failScene(outcome, policy, err, logger)
	}

	sceneClip, err := c.mixer.MixScene(ctx, ep.ID, scene.Index, lines, c.resolveAsset(scene.Ambience), scenePath)
	if err != nil {
		return c.failScene(outcome, policy, err, logger)
	}
	if err := c.store.RecordClip(ctx, runID, sceneClip); err != nil {
		logger.Warn("scene ledger write failed", logging.Error(err))
	}

	outcome.Status = script.StatusComplete
	outcome.Clip = sceneClip
	return outcome, nil
}

// failScene finalizes a scene that cannot produce a track. Fail-fast
// escalates the error to the run; best-effort records the scene as dropped
// so assembly proceeds without it.
func (c *Coordinator) failScene(outcome SceneOutcome, policy Policy, err error, logger *slog.Logger) (SceneOutcome, error) {
	outcome.Status = script.StatusFailed
	outcome.Dropped = true
	outcome.Err = err
	if policy == PolicyFailFast {
		return outcome, err
	}
	logger.Warn("scene dropped",
		logging.Error(err),
		logging.Int("line_failures", len(outcome.Failures)),
	)
	return outcome, nil
}

// resolveLine returns a valid line clip, reusing the ledger when the
// recorded artifact still verifies and synthesizing otherwise.
func (c *Coordinator) resolveLine(ctx context.Context, normalized *script.Normalized, registry *voices.Registry, sceneDir, runID string, sceneIndex int, line script.Line) (clip.Clip, bool, error) {
	ep := normalized.Episode

	if recorded, err := c.store.LookupClip(ctx, ep.ID, clip.KindLine, sceneIndex, line.Position); err == nil && recorded != nil {
		if fileutil.VerifyArtifact(recorded.Path) == nil {
			return *recorded, true, nil
		}
	}

	profile, ok := registry.Resolve(line.Character)
	if !ok {
		// Validation guarantees resolution; a miss here means the registry
		// changed mid-run.
		return clip.Clip{}, false, services.Wrap(services.ErrSynthesis, "synthesizing", "resolve voice",
			fmt.Sprintf("no voice profile for character %q", line.Character), nil)
	}
	token, err := normalized.Tokens.Assign(line.Character)
	if err != nil {
		return clip.Clip{}, false, err
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return clip.Clip{}, false, err
	}
	defer c.sem.Release(1)

	lineClip, err := c.synth.SynthesizeLine(ctx, synth.Request{
		EpisodeID:   ep.ID,
		SceneIndex:  sceneIndex,
		Position:    line.Position,
		Character:   line.Character,
		Text:        line.Text,
		Profile:     profile,
		Destination: filepath.Join(sceneDir, fmt.Sprintf("line_%03d_%s.mp3", line.Position, token)),
	})
	if err != nil {
		return clip.Clip{}, false, err
	}
	if err := c.store.RecordClip(ctx, runID, lineClip); err != nil {
		logging.WithContext(ctx, c.logger).Warn("line ledger write failed", logging.Error(err))
	}
	return lineClip, false, nil
}

func (c *Coordinator) assembleEpisode(ctx context.Context, ep *script.Episode, outcomes []SceneOutcome, episodePath, runID string) (assemble.Result, error) {
	ctx = services.WithStage(ctx, string(store.RunAssembling))
	if err := c.store.UpdateRunStatus(ctx, runID, store.RunAssembling); err != nil {
		return assemble.Result{}, services.Wrap(services.ErrFileSystem, "pipeline", "record stage", "", err)
	}

	var scenes []clip.Clip
	for _, outcome := range outcomes {
		if outcome.Status == script.StatusComplete {
			scenes = append(scenes, outcome.Clip)
		}
	}
	if len(scenes) == 0 {
		return assemble.Result{}, services.Wrap(services.ErrAssembly, "assembling", "collect scenes",
			"no scenes survived synthesis and mixing", nil)
	}

	assembled, err := c.assembler.Assemble(ctx, ep.ID,
		scenes, c.resolveAsset(ep.Intro), c.resolveAsset(ep.Outro), episodePath)
	if err != nil {
		return assemble.Result{}, err
	}

	title := ep.Title
	if title == "" {
		title = ep.ID
	}
	tags := map[string]string{
		"title":   title,
		"album":   "podium",
		"artist":  "podium",
		"comment": "run " + runID,
	}
	if err := c.audio.Tag(ctx, assembled.Episode.Path, tags); err != nil {
		// Tagging is cosmetic; the episode is already assembled and verified.
		logging.WithContext(ctx, c.logger).Warn("episode tagging failed", logging.Error(err))
	}

	if err := c.store.RecordClip(ctx, runID, assembled.Episode); err != nil {
		logging.WithContext(ctx, c.logger).Warn("episode ledger write failed", logging.Error(err))
	}
	return assembled, nil
}

// resolveAsset maps a script asset reference to a path under the assets
// directory; absolute references pass through untouched. Empty stays empty.
func (c *Coordinator) resolveAsset(ref string) string {
	if ref == "" {
		return ""
	}
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(c.cfg.Paths.AssetsDir, ref)
}

// Reset clears the clip ledger for an episode so the next run starts from
// scratch.
func (c *Coordinator) Reset(ctx context.Context, episodeID string) error {
	return c.store.DeleteEpisodeClips(ctx, episodeID)
}
