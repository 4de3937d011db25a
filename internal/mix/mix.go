package mix

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"podium/internal/clip"
	"podium/internal/fileutil"
	"podium/internal/logging"
	"podium/internal/services"
	"podium/internal/services/ffmpeg"
)

// Options controls scene mixing behaviour.
type Options struct {
	// LineGap is the silence inserted between consecutive lines.
	LineGap time.Duration
	// AmbienceAttenuation is the relative weight of the ambience bed when
	// mixed under dialogue.
	AmbienceAttenuation float64
}

func (o Options) withDefaults() Options {
	if o.LineGap <= 0 {
		o.LineGap = 500 * time.Millisecond
	}
	if o.AmbienceAttenuation <= 0 || o.AmbienceAttenuation > 1 {
		o.AmbienceAttenuation = 0.3
	}
	return o
}

// Mixer assembles the valid line clips of a scene into a single scene track,
// optionally layering an ambience bed underneath.
type Mixer struct {
	audio  ffmpeg.Client
	opts   Options
	logger *slog.Logger
}

// New constructs a Mixer.
func New(audio ffmpeg.Client, opts Options, logger *slog.Logger) *Mixer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Mixer{
		audio:  audio,
		opts:   opts.withDefaults(),
		logger: logger.With(logging.String(logging.FieldComponent, "mix")),
	}
}

// MixScene concatenates the scene's valid line clips in position order with
// silence gaps between them, then overlays ambience when ambiencePath is
// non-empty. The scene track is written to outputPath and returned as a
// verified scene clip. Zero valid clips is a mixing error.
func (m *Mixer) MixScene(ctx context.Context, episodeID string, sceneIndex int, lines []clip.Clip, ambiencePath, outputPath string) (clip.Clip, error) {
	result := clip.NewScene(episodeID, sceneIndex, outputPath)
	logger := logging.WithContext(ctx, m.logger)

	valid := make([]clip.Clip, 0, len(lines))
	for _, c := range lines {
		if c.Valid {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return result, services.Wrap(services.ErrMixing, "mixing", "collect clips",
			fmt.Sprintf("scene %d has no valid line clips", sceneIndex), nil)
	}
	// Canonical order is line position, never completion order.
	sort.Slice(valid, func(i, j int) bool { return valid[i].LinePosition < valid[j].LinePosition })

	// Clips can vanish between synthesis and mixing; re-check before the
	// manifest references them.
	for _, c := range valid {
		if err := fileutil.VerifyArtifact(c.Path); err != nil {
			return result, services.Wrap(services.ErrMixing, "mixing", "verify clip", "", err)
		}
	}

	sceneDir := filepath.Dir(outputPath)
	gapPath := filepath.Join(sceneDir, "gap.mp3")
	if err := m.audio.Silence(ctx, gapPath, m.opts.LineGap); err != nil {
		return result, services.Wrap(services.ErrMixing, "mixing", "render silence", "", err)
	}
	defer os.Remove(gapPath)

	sequence := interleaveGaps(valid, gapPath, episodeID, sceneIndex)
	content, err := ManifestContent(sequence)
	if err != nil {
		return result, err
	}

	manifestPath := filepath.Join(sceneDir, "concat_manifest.txt")
	if err := fileutil.WriteFileAtomic(manifestPath, []byte(content), 0o644); err != nil {
		return result, services.Wrap(services.ErrFileSystem, "mixing", "write manifest", "", err)
	}
	defer os.Remove(manifestPath)

	dialoguePath := outputPath
	if ambiencePath != "" {
		dialoguePath = filepath.Join(sceneDir, "dialogue.mp3")
	}
	if err := m.audio.Concat(ctx, manifestPath, dialoguePath); err != nil {
		return result, services.Wrap(services.ErrMixing, "mixing", "concatenate lines", "", err)
	}

	if ambiencePath != "" {
		if err := fileutil.VerifyArtifact(ambiencePath); err != nil {
			// A missing ambience bed degrades the scene, it does not fail it.
			logger.Warn("ambience bed unavailable; mixing dialogue only",
				logging.Int(logging.FieldScene, sceneIndex),
				logging.String("ambience", ambiencePath),
				logging.Error(err),
			)
			if err := os.Rename(dialoguePath, outputPath); err != nil {
				return result, services.Wrap(services.ErrFileSystem, "mixing", "promote dialogue track", "", err)
			}
		} else {
			if err := m.audio.Overlay(ctx, dialoguePath, ambiencePath, outputPath, m.opts.AmbienceAttenuation); err != nil {
				return result, services.Wrap(services.ErrMixing, "mixing", "overlay ambience", "", err)
			}
			defer os.Remove(dialoguePath)
		}
	}

	if err := fileutil.VerifyArtifact(outputPath); err != nil {
		return result, services.Wrap(services.ErrMixing, "mixing", "verify scene track", "", err)
	}
	if probe, err := m.audio.Probe(ctx, outputPath); err == nil {
		result.Duration = probe.Duration
	}
	result.Valid = true

	logger.Info("scene mixed",
		logging.Int(logging.FieldScene, sceneIndex),
		logging.Int("lines", len(valid)),
		logging.Bool("ambience", ambiencePath != ""),
	)
	return result, nil
}

// interleaveGaps produces the concat sequence line, gap, line, ..., line.
func interleaveGaps(lines []clip.Clip, gapPath, episodeID string, sceneIndex int) []clip.Clip {
	gap := clip.NewLine(episodeID, sceneIndex, -1, "", gapPath)
	gap.Valid = true

	sequence := make([]clip.Clip, 0, len(lines)*2-1)
	for i, c := range lines {
		if i > 0 {
			sequence = append(sequence, gap)
		}
		sequence = append(sequence, c)
	}
	return sequence
}
