package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"podium/internal/clip"
	"podium/internal/fileutil"
	"podium/internal/logging"
	"podium/internal/services"
	"podium/internal/voices"
)

// Backend is the speech synthesis contract. Implementations must be safe for
// concurrent use; they hold no per-call mutable state.
type Backend interface {
	Synthesize(ctx context.Context, text string, profile voices.VoiceProfile) ([]byte, error)
}

// Options controls retry behaviour.
type Options struct {
	// MaxAttempts bounds the total number of synthesis attempts per line.
	MaxAttempts int
	// InitialBackoff is the delay before the second attempt; it doubles on
	// each subsequent retry.
	InitialBackoff time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 500 * time.Millisecond
	}
	return o
}

// Request identifies one line to synthesize.
type Request struct {
	EpisodeID  string
	SceneIndex int
	Position   int
	Character  string
	Text       string
	Profile    voices.VoiceProfile
	// Destination is the absolute path the clip is written to.
	Destination string
}

// Synthesizer turns (character, text) pairs into verified speech clips.
type Synthesizer struct {
	backend Backend
	opts    Options
	logger  *slog.Logger
}

// New constructs a Synthesizer.
func New(backend Backend, opts Options, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Synthesizer{
		backend: backend,
		opts:    opts.withDefaults(),
		logger:  logger.With(logging.String(logging.FieldComponent, "synth")),
	}
}

// SynthesizeLine invokes the backend and writes a verified clip to the
// request destination. Transient backend failures and invalid artifacts
// (zero-byte, unreadable) are retried with exponential backoff up to the
// configured bound; exhaustion fails with a SynthesisError carrying the
// character and line identity.
func (s *Synthesizer) SynthesizeLine(ctx context.Context, req Request) (clip.Clip, error) {
	result := clip.NewLine(req.EpisodeID, req.SceneIndex, req.Position, req.Character, req.Destination)

	if !filepath.IsAbs(req.Destination) {
		return result, services.Wrap(services.ErrFileSystem, "synthesizing", "resolve destination",
			fmt.Sprintf("destination %q is not absolute", req.Destination), nil)
	}
	if err := os.MkdirAll(filepath.Dir(req.Destination), 0o755); err != nil {
		return result, services.Wrap(services.ErrFileSystem, "synthesizing", "create scene directory", "", err)
	}

	logger := logging.WithContext(ctx, s.logger)
	backoff := s.opts.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		lastErr = s.attempt(ctx, req)
		if lastErr == nil {
			result.Valid = true
			if attempt > 1 {
				logger.Info("line synthesized after retry",
					logging.String("character", req.Character),
					logging.Int("attempt", attempt),
				)
			}
			return result, nil
		}

		if permanent(lastErr) {
			break
		}
		if attempt < s.opts.MaxAttempts {
			logger.Warn("synthesis attempt failed; retrying",
				logging.String("character", req.Character),
				logging.Int("attempt", attempt),
				logging.Duration("backoff", backoff),
				logging.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	// Discard any partial artifact so nothing downstream can reference it.
	_ = os.Remove(req.Destination)

	return result, services.Wrap(services.ErrSynthesis, "synthesizing", "generate line",
		fmt.Sprintf("character %q scene %d line %d failed after %d attempts",
			req.Character, req.SceneIndex, req.Position, s.opts.MaxAttempts),
		lastErr)
}

func (s *Synthesizer) attempt(ctx context.Context, req Request) error {
	audio, err := s.backend.Synthesize(ctx, req.Text, req.Profile)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(req.Destination, audio, 0o644); err != nil {
		return services.Wrap(services.ErrFileSystem, "synthesizing", "write clip", "", err)
	}
	// A zero-byte or unreadable result is a failure eligible for retry, not
	// a success.
	if err := fileutil.VerifyArtifact(req.Destination); err != nil {
		return err
	}
	return nil
}

// permanent reports whether an error should not be retried.
func permanent(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, services.ErrConfiguration) || errors.Is(err, services.ErrSynthesis) {
		return true
	}
	return false
}
