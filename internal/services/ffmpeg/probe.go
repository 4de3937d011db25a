package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ProbeResult captures container-level metadata extracted by ffprobe.
type ProbeResult struct {
	Duration time.Duration
	Size     int64
	Format   string
}

type probePayload struct {
	Format struct {
		Duration   string `json:"duration"`
		Size       string `json:"size"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

// Probe executes ffprobe against the provided path and decodes the JSON response.
func (c *CLI) Probe(ctx context.Context, path string) (ProbeResult, error) {
	if strings.TrimSpace(path) == "" {
		return ProbeResult{}, errors.New("ffprobe: empty path")
	}

	cmd := commandContext(ctx, c.ffprobe, "-v", "error", "-hide_banner", "-show_format", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(string(output)))
	}

	var payload probePayload
	if err := json.Unmarshal(output, &payload); err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe parse: %w", err)
	}

	result := ProbeResult{Format: payload.Format.FormatName}
	if seconds, err := strconv.ParseFloat(payload.Format.Duration, 64); err == nil && seconds > 0 {
		result.Duration = time.Duration(seconds * float64(time.Second))
	}
	if size, err := strconv.ParseInt(payload.Format.Size, 10, 64); err == nil && size > 0 {
		result.Size = size
	}
	return result, nil
}
