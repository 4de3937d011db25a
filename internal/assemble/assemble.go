package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"podium/internal/clip"
	"podium/internal/fileutil"
	"podium/internal/logging"
	"podium/internal/mix"
	"podium/internal/services"
	"podium/internal/services/ffmpeg"
)

// Options controls intro and outro handling during assembly.
type Options struct {
	// IntroLimit trims the intro music to this length with a fade-out at the
	// end. Zero disables trimming.
	IntroLimit time.Duration
	// OutroLimit trims the outro music with a fade-in at the start.
	OutroLimit time.Duration
	// Fade is the fade length applied to trimmed intro and outro tracks.
	Fade time.Duration
}

// AssemblyError reports scene tracks that vanished or became unreadable
// between mixing and assembly.
type AssemblyError struct {
	EpisodeID     string
	MissingScenes []int
}

func (e *AssemblyError) Error() string {
	indexes := make([]string, len(e.MissingScenes))
	for i, idx := range e.MissingScenes {
		indexes[i] = fmt.Sprintf("%d", idx)
	}
	return fmt.Sprintf("episode %s: scene tracks unavailable at assembly: %s",
		e.EpisodeID, strings.Join(indexes, ", "))
}

func (e *AssemblyError) Unwrap() error { return services.ErrAssembly }

// Assembler concatenates verified scene tracks, with optional intro and
// outro music, into the final episode file.
type Assembler struct {
	audio  ffmpeg.Client
	opts   Options
	logger *slog.Logger
}

// New constructs an Assembler.
func New(audio ffmpeg.Client, opts Options, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Assembler{
		audio:  audio,
		opts:   opts,
		logger: logger.With(logging.String(logging.FieldComponent, "assemble")),
	}
}

// Result describes the assembled episode.
type Result struct {
	Episode clip.Clip
	// SceneIndexes lists the scenes included, in order.
	SceneIndexes []int
}

// Assemble verifies every scene track immediately before use, builds a fresh
// concat manifest of intro, scenes in index order, and outro, and writes the
// episode to outputPath. Scene tracks that fail verification here abort the
// run with an AssemblyError naming the affected scene indexes.
func (a *Assembler) Assemble(ctx context.Context, episodeID string, scenes []clip.Clip, introPath, outroPath, outputPath string) (Result, error) {
	result := Result{Episode: clip.NewEpisode(episodeID, outputPath)}
	logger := logging.WithContext(ctx, a.logger)

	ordered := make([]clip.Clip, 0, len(scenes))
	for _, c := range scenes {
		if c.Valid {
			ordered = append(ordered, c)
		}
	}
	if len(ordered) == 0 {
		return result, services.Wrap(services.ErrAssembly, "assembling", "collect scenes",
			"no scene tracks to assemble", nil)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].SceneIndex < ordered[j].SceneIndex })

	var missing []int
	for _, c := range ordered {
		if err := fileutil.VerifyArtifact(c.Path); err != nil {
			missing = append(missing, c.SceneIndex)
		}
	}
	if len(missing) > 0 {
		return result, &AssemblyError{EpisodeID: episodeID, MissingScenes: missing}
	}

	workDir := filepath.Dir(outputPath)
	sequence := make([]clip.Clip, 0, len(ordered)+2)

	if introPath != "" {
		trimmed := filepath.Join(workDir, "intro_trimmed.mp3")
		intro, err := a.prepareBookend(ctx, introPath, trimmed, a.opts.IntroLimit, false)
		if err != nil {
			return result, err
		}
		defer os.Remove(trimmed)
		sequence = append(sequence, intro)
	}
	sequence = append(sequence, ordered...)
	if outroPath != "" {
		trimmed := filepath.Join(workDir, "outro_trimmed.mp3")
		outro, err := a.prepareBookend(ctx, outroPath, trimmed, a.opts.OutroLimit, true)
		if err != nil {
			return result, err
		}
		defer os.Remove(trimmed)
		sequence = append(sequence, outro)
	}

	content, err := mix.ManifestContent(sequence)
	if err != nil {
		return result, err
	}
	manifestPath := filepath.Join(workDir, "episode_manifest.txt")
	if err := fileutil.WriteFileAtomic(manifestPath, []byte(content), 0o644); err != nil {
		return result, services.Wrap(services.ErrFileSystem, "assembling", "write manifest", "", err)
	}
	defer os.Remove(manifestPath)

	if err := a.audio.Concat(ctx, manifestPath, outputPath); err != nil {
		return result, services.Wrap(services.ErrAssembly, "assembling", "concatenate scenes", "", err)
	}
	if err := fileutil.VerifyArtifact(outputPath); err != nil {
		return result, services.Wrap(services.ErrAssembly, "assembling", "verify episode", "", err)
	}

	result.Episode.Valid = true
	if probe, err := a.audio.Probe(ctx, outputPath); err == nil {
		result.Episode.Duration = probe.Duration
	}
	for _, c := range ordered {
		result.SceneIndexes = append(result.SceneIndexes, c.SceneIndex)
	}

	logger.Info("episode assembled",
		logging.Int("scenes", len(ordered)),
		logging.Duration("duration", result.Episode.Duration),
	)
	return result, nil
}

// prepareBookend trims intro or outro music to its limit and applies the
// configured fade. When no limit is set the source is used untouched.
func (a *Assembler) prepareBookend(ctx context.Context, sourcePath, trimmedPath string, limit time.Duration, fadeIn bool) (clip.Clip, error) {
	if err := fileutil.VerifyArtifact(sourcePath); err != nil {
		return clip.Clip{}, services.Wrap(services.ErrAssembly, "assembling", "verify bookend", "", err)
	}
	path := sourcePath
	if limit > 0 {
		if err := a.audio.TrimFade(ctx, sourcePath, trimmedPath, limit, a.opts.Fade, fadeIn); err != nil {
			return clip.Clip{}, services.Wrap(services.ErrAssembly, "assembling", "trim bookend", "", err)
		}
		path = trimmedPath
	}
	c := clip.Clip{Kind: clip.KindLine, SceneIndex: -1, LinePosition: -1, Path: path, Valid: true}
	return c, nil
}
