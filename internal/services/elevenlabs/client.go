package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"podium/internal/services"
	"podium/internal/voices"
)

const defaultBaseURL = "https://api.elevenlabs.io"

// Config holds connection settings for the ElevenLabs API.
type Config struct {
	APIKey  string
	BaseURL string
	// ModelID selects the synthesis model, e.g. "eleven_multilingual_v2".
	ModelID string
	Timeout time.Duration
}

// Client synthesizes speech through the ElevenLabs HTTP API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient constructs a client with defaults applied.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.ModelID == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Synthesize converts text into MP3 audio bytes using the profile's voice and
// tuning parameters. Server-side and transport failures are tagged transient
// so the synthesizer retries them; client errors are permanent.
func (c *Client) Synthesize(ctx context.Context, text string, profile voices.VoiceProfile) ([]byte, error) {
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "elevenlabs", "synthesize", "api key not configured", nil)
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is empty")
	}
	if profile.VoiceID == "" {
		return nil, fmt.Errorf("no voice id for character %q", profile.Character)
	}

	payload, err := json.Marshal(synthesisRequest{
		Text:    cleanText(text),
		ModelID: c.cfg.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       profile.Stability,
			SimilarityBoost: profile.SimilarityBoost,
			Style:           profile.Style,
			UseSpeakerBoost: profile.SpeakerBoost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", strings.TrimRight(c.cfg.BaseURL, "/"), profile.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "elevenlabs", "synthesize", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, services.Wrap(services.ErrTransient, "elevenlabs", "synthesize", msg, nil)
		}
		return nil, services.Wrap(services.ErrSynthesis, "elevenlabs", "synthesize", msg, nil)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "elevenlabs", "synthesize", "read audio body", err)
	}
	if len(audio) == 0 {
		return nil, services.Wrap(services.ErrTransient, "elevenlabs", "synthesize", "empty audio response", nil)
	}
	return audio, nil
}

// cleanText strips characters that trip up synthesis, matching the
// conditioning the registry applies when previewing voices.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, `"`, "")
	return strings.ReplaceAll(text, "...", "…")
}
