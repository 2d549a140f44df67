// Package openai provides a speech-to-text provider backed by the
// go-openai SDK audio transcription endpoint.
package openai

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"meeting-summary-service/internal/failure"
)

const op = "transcribe"

// Config holds OpenAI provider configuration.
type Config struct {
	APIKey string
	// BaseURL overrides the API root, e.g. for a compatible proxy.
	BaseURL  string
	Model    string
	Language string
	Timeout  time.Duration
}

// Client implements stt.Transcriber using CreateTranscription.
type Client struct {
	api      *goopenai.Client
	model    string
	language string
}

// New creates a new OpenAI transcription client.
func New(cfg Config) *Client {
	sdkCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		sdkCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 900 * time.Second
	}
	sdkCfg.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.Model
	if model == "" {
		model = goopenai.Whisper1
	}
	return &Client{
		api:      goopenai.NewClientWithConfig(sdkCfg),
		model:    model,
		language: cfg.Language,
	}
}

// Transcribe uploads one audio file and returns its text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, fileName string) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    c.model,
		FilePath: fileName,
		Reader:   bytes.NewReader(audio),
		Language: c.language,
		Format:   goopenai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", classify(err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return failure.BadStatus(op, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return failure.BadStatus(op, reqErr.HTTPStatusCode, "")
	}
	return failure.Network(op, err)
}
