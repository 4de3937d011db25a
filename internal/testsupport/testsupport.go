package testsupport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"podium/internal/config"
	"podium/internal/script"
	"podium/internal/services"
	"podium/internal/services/ffmpeg"
	"podium/internal/store"
	"podium/internal/voices"
)

// NewConfig returns a validated configuration rooted in a temporary
// directory tree that is cleaned up with the test.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.EpisodesDir = filepath.Join(base, "episodes")
	cfg.Paths.AssetsDir = filepath.Join(base, "assets")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.TTS.APIKey = "test-key"
	cfg.TTS.RetryBackoffMS = 1
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// NewStore opens a ledger database under the config's log directory.
func NewStore(t *testing.T, cfg *config.Config) *store.Store {
	t.Helper()
	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// NewRegistry builds a voice registry covering the given character names.
func NewRegistry(characters ...string) *voices.Registry {
	profiles := make([]voices.VoiceProfile, 0, len(characters))
	for i, name := range characters {
		profiles = append(profiles, voices.VoiceProfile{
			Character: name,
			VoiceID:   "voice-" + string(rune('a'+i)),
		})
	}
	return voices.NewRegistry(profiles)
}

// TwoSceneEpisode returns a small well-formed episode with two scenes and
// two characters.
func TwoSceneEpisode() *script.Episode {
	return &script.Episode{
		ID:    "ep_001",
		Title: "First Contact",
		Scenes: []script.Scene{
			{
				Index:   0,
				Summary: "Docking bay",
				Lines: []script.Line{
					{Character: "Aria", Text: "We made it.", Position: 0},
					{Character: "Jalen", Text: "Barely.", Position: 1},
				},
			},
			{
				Index:   1,
				Summary: "Bridge",
				Lines: []script.Line{
					{Character: "Jalen", Text: "Status report.", Position: 0},
					{Character: "Aria", Text: "All systems green.", Position: 1},
				},
			},
		},
	}
}

// WriteAsset drops a placeholder asset file under the config's assets
// directory and returns its name.
func WriteAsset(t *testing.T, cfg *config.Config, name string) string {
	t.Helper()
	path := filepath.Join(cfg.Paths.AssetsDir, name)
	if err := os.WriteFile(path, []byte("asset"), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	return name
}

// SynthCall records one synthesis request seen by FakeSynth.
type SynthCall struct {
	Text    string
	VoiceID string
}

// FakeSynth is a scripted synthesis backend. FailFirst makes the first N
// calls for each distinct text fail transiently; FailTexts lists texts that
// always fail permanently.
type FakeSynth struct {
	mu        sync.Mutex
	calls     []SynthCall
	attempts  map[string]int
	FailFirst int
	FailTexts map[string]bool
	// Delay simulates backend latency, letting tests exercise concurrency.
	Delay time.Duration
}

func (f *FakeSynth) Synthesize(ctx context.Context, text string, profile voices.VoiceProfile) ([]byte, error) {
	f.mu.Lock()
	if f.attempts == nil {
		f.attempts = make(map[string]int)
	}
	f.attempts[text]++
	attempt := f.attempts[text]
	f.calls = append(f.calls, SynthCall{Text: text, VoiceID: profile.VoiceID})
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.FailTexts[text] {
		return nil, services.Wrap(services.ErrSynthesis, "synthesizing", "request speech", "voice rejected input", nil)
	}
	if attempt <= f.FailFirst {
		return nil, services.Wrap(services.ErrTransient, "synthesizing", "request speech", "upstream 503", nil)
	}
	return []byte("audio:" + text), nil
}

// Calls returns a copy of the recorded synthesis requests.
func (f *FakeSynth) Calls() []SynthCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SynthCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// Attempts reports how many times a text was requested.
func (f *FakeSynth) Attempts(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[text]
}

// FakeAudio implements ffmpeg.Client by writing placeholder files, recording
// concat manifests and tag calls for assertions.
type FakeAudio struct {
	mu        sync.Mutex
	Manifests []string
	Tags      []map[string]string
	Overlays  int
	// FailConcats lists output path fragments whose Concat calls fail.
	FailConcats []string
}

func (f *FakeAudio) Concat(ctx context.Context, manifestPath, outputPath string) error {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.Manifests = append(f.Manifests, string(data))
	f.mu.Unlock()
	for _, fragment := range f.FailConcats {
		if strings.Contains(outputPath, fragment) {
			return errors.New("concat rejected: " + outputPath)
		}
	}
	return os.WriteFile(outputPath, []byte("concat"), 0o644)
}

func (f *FakeAudio) Overlay(ctx context.Context, basePath, ambiencePath, outputPath string, attenuation float64) error {
	f.mu.Lock()
	f.Overlays++
	f.mu.Unlock()
	return os.WriteFile(outputPath, []byte("overlaid"), 0o644)
}

func (f *FakeAudio) Silence(ctx context.Context, outputPath string, d time.Duration) error {
	return os.WriteFile(outputPath, []byte("silence"), 0o644)
}

func (f *FakeAudio) TrimFade(ctx context.Context, inputPath, outputPath string, limit, fade time.Duration, fadeIn bool) error {
	return os.WriteFile(outputPath, []byte("trimmed"), 0o644)
}

func (f *FakeAudio) Tag(ctx context.Context, path string, tags map[string]string) error {
	f.mu.Lock()
	f.Tags = append(f.Tags, tags)
	f.mu.Unlock()
	return nil
}

func (f *FakeAudio) Probe(ctx context.Context, path string) (ffmpeg.ProbeResult, error) {
	return ffmpeg.ProbeResult{Duration: 2 * time.Second}, nil
}

var _ ffmpeg.Client = (*FakeAudio)(nil)
