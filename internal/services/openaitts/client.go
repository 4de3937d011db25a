package openaitts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"podium/internal/services"
	"podium/internal/voices"
)

// Config holds connection settings for the OpenAI speech API.
type Config struct {
	APIKey  string
	BaseURL string
	// Model selects the speech model, e.g. "tts-1".
	Model string
}

// Client synthesizes speech through the OpenAI audio API. Voice profiles map
// their VoiceID onto OpenAI's built-in voices (alloy, echo, fable, onyx,
// nova, shimmer); the ElevenLabs-specific tuning parameters have no OpenAI
// equivalent and are ignored.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient constructs a client with defaults applied.
func NewClient(cfg Config) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.TTSModel1)
	}
	return &Client{api: openai.NewClientWithConfig(clientConfig), model: model}
}

// Synthesize converts text into MP3 audio bytes.
func (c *Client) Synthesize(ctx context.Context, text string, profile voices.VoiceProfile) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is empty")
	}
	voice := openai.SpeechVoice(profile.VoiceID)
	if voice == "" {
		voice = openai.VoiceAlloy
	}

	resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.model),
		Input:          text,
		Voice:          voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 && apiErr.HTTPStatusCode != 429 {
			return nil, services.Wrap(services.ErrSynthesis, "openai-tts", "create speech", apiErr.Message, err)
		}
		return nil, services.Wrap(services.ErrTransient, "openai-tts", "create speech", "request failed", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "openai-tts", "create speech", "read audio body", err)
	}
	if len(audio) == 0 {
		return nil, services.Wrap(services.ErrTransient, "openai-tts", "create speech",
			fmt.Sprintf("empty audio for voice %q", voice), nil)
	}
	return audio, nil
}
