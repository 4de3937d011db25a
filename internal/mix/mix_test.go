package mix

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"podium/internal/clip"
	"podium/internal/services"
	"podium/internal/services/ffmpeg"
)

// fakeAudio implements ffmpeg.Client by writing placeholder artifacts and
// recording the manifests it is asked to concatenate.
type fakeAudio struct {
	manifests []string
	overlays  int
}

func (f *fakeAudio) Concat(ctx context.Context, manifestPath, outputPath string) error {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return err
	}
	f.manifests = append(f.manifests, string(data))
	return os.WriteFile(outputPath, []byte("concat"), 0o644)
}

func (f *fakeAudio) Overlay(ctx context.Context, basePath, ambiencePath, outputPath string, attenuation float64) error {
	f.overlays++
	return os.WriteFile(outputPath, []byte("overlaid"), 0o644)
}

func (f *fakeAudio) Silence(ctx context.Context, outputPath string, d time.Duration) error {
	return os.WriteFile(outputPath, []byte("silence"), 0o644)
}

func (f *fakeAudio) TrimFade(ctx context.Context, inputPath, outputPath string, limit, fade time.Duration, fadeIn bool) error {
	return os.WriteFile(outputPath, []byte("trimmed"), 0o644)
}

func (f *fakeAudio) Tag(ctx context.Context, path string, tags map[string]string) error {
	return nil
}

func (f *fakeAudio) Probe(ctx context.Context, path string) (ffmpeg.ProbeResult, error) {
	return ffmpeg.ProbeResult{Duration: 3 * time.Second}, nil
}

var _ ffmpeg.Client = (*fakeAudio)(nil)

func writeclip(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func lineClip(t *testing.T, dir string, position int, character string) clip.Clip {
	t.Helper()
	c := clip.NewLine("ep_001", 0, position, character, writeclip(t, dir, character+".mp3"))
	c.Valid = true
	return c
}

func TestMixSceneOrdersByPosition(t *testing.T) {
	dir := t.TempDir()
	audio := &fakeAudio{}
	m := New(audio, Options{}, nil)

	// Deliberately out of completion order.
	lines := []clip.Clip{
		lineClip(t, dir, 2, "charlie"),
		lineClip(t, dir, 0, "alpha"),
		lineClip(t, dir, 1, "bravo"),
	}
	out := filepath.Join(dir, "scene_audio.mp3")
	c, err := m.MixScene(context.Background(), "ep_001", 0, lines, "", out)
	if err != nil {
		t.Fatalf("MixScene: %v", err)
	}
	if !c.Valid {
		t.Fatal("expected valid scene clip")
	}
	if len(audio.manifests) != 1 {
		t.Fatalf("expected one concat, got %d", len(audio.manifests))
	}
	manifest := audio.manifests[0]
	alpha := strings.Index(manifest, "alpha.mp3")
	bravo := strings.Index(manifest, "bravo.mp3")
	charlie := strings.Index(manifest, "charlie.mp3")
	if alpha == -1 || bravo == -1 || charlie == -1 {
		t.Fatalf("manifest missing clips: %s", manifest)
	}
	if !(alpha < bravo && bravo < charlie) {
		t.Fatalf("manifest not in position order: %s", manifest)
	}
	if strings.Count(manifest, "gap.mp3") != 2 {
		t.Fatalf("expected 2 silence gaps between 3 lines: %s", manifest)
	}
}

func TestMixSceneSkipsInvalidClips(t *testing.T) {
	dir := t.TempDir()
	audio := &fakeAudio{}
	m := New(audio, Options{}, nil)

	failed := clip.NewLine("ep_001", 0, 1, "bravo", filepath.Join(dir, "missing.mp3"))
	lines := []clip.Clip{
		lineClip(t, dir, 0, "alpha"),
		failed,
		lineClip(t, dir, 2, "charlie"),
	}
	out := filepath.Join(dir, "scene_audio.mp3")
	if _, err := m.MixScene(context.Background(), "ep_001", 0, lines, "", out); err != nil {
		t.Fatalf("MixScene: %v", err)
	}
	if strings.Contains(audio.manifests[0], "missing.mp3") {
		t.Fatal("invalid clip must not appear in the manifest")
	}
}

func TestMixSceneNoValidClips(t *testing.T) {
	dir := t.TempDir()
	m := New(&fakeAudio{}, Options{}, nil)

	lines := []clip.Clip{
		clip.NewLine("ep_001", 0, 0, "alpha", filepath.Join(dir, "a.mp3")),
	}
	_, err := m.MixScene(context.Background(), "ep_001", 0, lines, "", filepath.Join(dir, "scene_audio.mp3"))
	if !errors.Is(err, services.ErrMixing) {
		t.Fatalf("expected mixing error, got %v", err)
	}
}

func TestMixSceneOverlaysAmbience(t *testing.T) {
	dir := t.TempDir()
	audio := &fakeAudio{}
	m := New(audio, Options{AmbienceAttenuation: 0.3}, nil)

	lines := []clip.Clip{lineClip(t, dir, 0, "alpha")}
	ambience := writeclip(t, dir, "rain")
	out := filepath.Join(dir, "scene_audio.mp3")
	c, err := m.MixScene(context.Background(), "ep_001", 0, lines, ambience, out)
	if err != nil {
		t.Fatalf("MixScene: %v", err)
	}
	if audio.overlays != 1 {
		t.Fatalf("expected one overlay, got %d", audio.overlays)
	}
	if c.Duration != 3*time.Second {
		t.Fatalf("expected probed duration, got %v", c.Duration)
	}
}

func TestMixSceneMissingAmbienceDegrades(t *testing.T) {
	dir := t.TempDir()
	audio := &fakeAudio{}
	m := New(audio, Options{}, nil)

	lines := []clip.Clip{lineClip(t, dir, 0, "alpha")}
	out := filepath.Join(dir, "scene_audio.mp3")
	c, err := m.MixScene(context.Background(), "ep_001", 0, lines, filepath.Join(dir, "no_such_bed.mp3"), out)
	if err != nil {
		t.Fatalf("missing ambience should not fail the scene: %v", err)
	}
	if audio.overlays != 0 {
		t.Fatal("overlay must be skipped when the bed is missing")
	}
	if !c.Valid {
		t.Fatal("expected valid scene clip")
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("scene track missing: %v", err)
	}
}

func TestMixSceneRemovesManifest(t *testing.T) {
	dir := t.TempDir()
	m := New(&fakeAudio{}, Options{}, nil)

	lines := []clip.Clip{lineClip(t, dir, 0, "alpha")}
	out := filepath.Join(dir, "scene_audio.mp3")
	if _, err := m.MixScene(context.Background(), "ep_001", 0, lines, "", out); err != nil {
		t.Fatalf("MixScene: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "concat_manifest.txt")); !os.IsNotExist(err) {
		t.Fatal("manifest should be removed after mixing")
	}
}

func TestManifestContentRejectsRelativePaths(t *testing.T) {
	c := clip.NewLine("ep_001", 0, 0, "alpha", "relative/a.mp3")
	c.Valid = true
	if _, err := ManifestContent([]clip.Clip{c}); !errors.Is(err, services.ErrMixing) {
		t.Fatalf("expected mixing error, got %v", err)
	}
}

func TestManifestContentEscapesQuotes(t *testing.T) {
	c := clip.NewLine("ep_001", 0, 0, "alpha", "/tmp/o'neill.mp3")
	c.Valid = true
	content, err := ManifestContent([]clip.Clip{c})
	if err != nil {
		t.Fatalf("ManifestContent: %v", err)
	}
	if !strings.Contains(content, `o'\''neill.mp3`) {
		t.Fatalf("quote not escaped: %s", content)
	}
}
