// Package whisper provides a speech-to-text client for Whisper-compatible
// HTTP transcription endpoints (multipart upload, JSON {"text"} response).
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"meeting-summary-service/internal/failure"
)

const op = "transcribe"

// Config holds Whisper client configuration.
type Config struct {
	Endpoint string
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration
}

// DefaultConfig returns the defaults for the hosted Whisper API.
func DefaultConfig() Config {
	return Config{
		Endpoint: "https://api.openai.com/v1/audio/transcriptions",
		Model:    "whisper-1",
		Language: "ko",
		Timeout:  900 * time.Second,
	}
}

// Client implements stt.Transcriber over HTTP.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a new Whisper client. The timeout bounds the request and the
// full response body together.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// response uses a pointer so a missing "text" field is distinguishable from
// an empty transcript.
type response struct {
	Text *string `json:"text"`
}

// Transcribe uploads one audio file and returns its text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, fileName string) (string, error) {
	body, contentType, err := c.buildForm(audio, fileName)
	if err != nil {
		return "", failure.New(failure.KindNetwork, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return "", failure.New(failure.KindNetwork, op, err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", failure.Network(op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", failure.Network(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", failure.BadStatus(op, resp.StatusCode, string(respBody))
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return "", failure.New(failure.KindEmptyBody, op, nil)
	}

	var parsed response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", failure.New(failure.KindDecode, op, err)
	}
	if parsed.Text == nil {
		return "", failure.Newf(failure.KindDecode, op, "response has no text field")
	}
	return strings.TrimSpace(*parsed.Text), nil
}

func (c *Client) buildForm(audio []byte, fileName string) (io.Reader, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("model", c.cfg.Model); err != nil {
		return nil, "", err
	}
	if c.cfg.Language != "" {
		if err := writer.WriteField("language", c.cfg.Language); err != nil {
			return nil, "", err
		}
	}

	// CreateFormFile would label the part application/octet-stream.
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(fileName)))
	header.Set("Content-Type", "audio/m4a")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", err
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
