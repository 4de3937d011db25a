package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

var commandContext = exec.CommandContext

// Client defines the mixing and concatenation behaviour the pipeline needs
// from an audio backend.
type Client interface {
	// Concat concatenates the files listed in a concat manifest into outputPath,
	// re-encoding to the configured sample rate and bitrate.
	Concat(ctx context.Context, manifestPath, outputPath string) error
	// Overlay mixes ambience under a base track at the given weight. The
	// ambience input is looped so it covers the full base duration; output
	// length follows the base track.
	Overlay(ctx context.Context, basePath, ambiencePath, outputPath string, attenuation float64) error
	// Silence writes a silent clip of the requested duration.
	Silence(ctx context.Context, outputPath string, d time.Duration) error
	// TrimFade cuts the input to limit and applies a fade. fadeIn selects a
	// fade-in from the start; otherwise a fade-out ending at the cut point.
	TrimFade(ctx context.Context, inputPath, outputPath string, limit, fade time.Duration, fadeIn bool) error
	// Tag rewrites the file with the provided metadata tags.
	Tag(ctx context.Context, path string, tags map[string]string) error
	// Probe reports the duration and size of an audio file.
	Probe(ctx context.Context, path string) (ProbeResult, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinaries overrides the ffmpeg and ffprobe binary names.
func WithBinaries(ffmpeg, ffprobe string) Option {
	return func(c *CLI) {
		if ffmpeg != "" {
			c.ffmpeg = ffmpeg
		}
		if ffprobe != "" {
			c.ffprobe = ffprobe
		}
	}
}

// WithEncoding overrides the output sample rate and bitrate.
func WithEncoding(sampleRate int, bitrate string) Option {
	return func(c *CLI) {
		if sampleRate > 0 {
			c.sampleRate = sampleRate
		}
		if bitrate != "" {
			c.bitrate = bitrate
		}
	}
}

// CLI wraps the ffmpeg and ffprobe command-line tools.
type CLI struct {
	ffmpeg     string
	ffprobe    string
	sampleRate int
	bitrate    string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{ffmpeg: "ffmpeg", ffprobe: "ffprobe", sampleRate: 44100, bitrate: "192k"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

func (c *CLI) Concat(ctx context.Context, manifestPath, outputPath string) error {
	if strings.TrimSpace(manifestPath) == "" {
		return errors.New("concat manifest path required")
	}
	if strings.TrimSpace(outputPath) == "" {
		return errors.New("concat output path required")
	}
	args := []string{
		"-y", "-loglevel", "error",
		"-f", "concat", "-safe", "0",
		"-i", manifestPath,
		"-c:a", "libmp3lame",
		"-b:a", c.bitrate,
		"-ar", strconv.Itoa(c.sampleRate),
		"-ac", "2",
		outputPath,
	}
	return c.run(ctx, "concat", args)
}

func (c *CLI) Overlay(ctx context.Context, basePath, ambiencePath, outputPath string, attenuation float64) error {
	if basePath == "" || ambiencePath == "" || outputPath == "" {
		return errors.New("overlay requires base, ambience, and output paths")
	}
	filter := fmt.Sprintf("[0:a][1:a]amix=inputs=2:duration=first:weights=1 %s",
		strconv.FormatFloat(attenuation, 'f', -1, 64))
	args := []string{
		"-y", "-loglevel", "error",
		"-i", basePath,
		"-stream_loop", "-1", "-i", ambiencePath,
		"-filter_complex", filter,
		"-ar", strconv.Itoa(c.sampleRate),
		outputPath,
	}
	return c.run(ctx, "overlay", args)
}

func (c *CLI) Silence(ctx context.Context, outputPath string, d time.Duration) error {
	if d <= 0 {
		return errors.New("silence duration must be positive")
	}
	args := []string{
		"-y", "-loglevel", "error",
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=stereo", c.sampleRate),
		"-t", formatSeconds(d),
		"-c:a", "libmp3lame",
		"-b:a", c.bitrate,
		outputPath,
	}
	return c.run(ctx, "silence", args)
}

func (c *CLI) TrimFade(ctx context.Context, inputPath, outputPath string, limit, fade time.Duration, fadeIn bool) error {
	if inputPath == "" || outputPath == "" {
		return errors.New("trim requires input and output paths")
	}
	args := []string{"-y", "-loglevel", "error", "-i", inputPath}
	if limit > 0 {
		args = append(args, "-t", formatSeconds(limit))
	}
	if fade > 0 {
		var filter string
		if fadeIn {
			filter = fmt.Sprintf("afade=t=in:st=0:d=%s", formatSeconds(fade))
		} else {
			start := limit - fade
			if start < 0 {
				start = 0
			}
			filter = fmt.Sprintf("afade=t=out:st=%s:d=%s", formatSeconds(start), formatSeconds(fade))
		}
		args = append(args, "-af", filter)
	}
	args = append(args, outputPath)
	return c.run(ctx, "trim", args)
}

func (c *CLI) Tag(ctx context.Context, path string, tags map[string]string) error {
	if len(tags) == 0 {
		return nil
	}
	tmp := path + ".tagged.mp3"
	args := []string{"-y", "-loglevel", "error", "-i", path, "-c", "copy"}
	for _, key := range []string{"title", "album", "artist", "comment"} {
		if value, ok := tags[key]; ok && value != "" {
			args = append(args, "-metadata", fmt.Sprintf("%s=%s", key, value))
		}
	}
	args = append(args, tmp)
	if err := c.run(ctx, "tag", args); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func (c *CLI) run(ctx context.Context, operation string, args []string) error {
	cmd := commandContext(ctx, c.ffmpeg, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w: %s", operation, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

var _ Client = (*CLI)(nil)
