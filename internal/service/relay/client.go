// Package relay hands a merged transcript to the remote summarization
// workflow and extracts the link to the produced summary.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"meeting-summary-service/internal/failure"
	"meeting-summary-service/internal/observability/logging"
	"meeting-summary-service/internal/observability/metrics"
	"meeting-summary-service/internal/retry"
)

const op = "relay"

// Config holds relay client configuration.
type Config struct {
	Endpoint string
	Timeout  time.Duration
	Retry    retry.Policy
}

// Client posts transcripts to the relay endpoint.
type Client struct {
	cfg     Config
	http    *http.Client
	metrics *metrics.Metrics
}

// New creates a new relay client.
func New(cfg Config, m *metrics.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 900 * time.Second
	}
	if cfg.Retry.Metrics == nil {
		cfg.Retry.Metrics = m
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		metrics: m,
	}
}

type request struct {
	Transcript string `json:"transcript"`
}

// Relay sends transcript and returns the summary link.
func (c *Client) Relay(ctx context.Context, transcript string) (*url.URL, error) {
	start := time.Now()
	link, err := retry.Do(ctx, c.cfg.Retry, op, func(ctx context.Context) (*url.URL, error) {
		return c.relayOnce(ctx, transcript)
	})

	if c.metrics != nil {
		errType := ""
		if err != nil {
			errType = failure.KindOf(err).String()
		}
		c.metrics.RecordRelay(errType, time.Since(start).Seconds())
	}
	return link, err
}

func (c *Client) relayOnce(ctx context.Context, transcript string) (*url.URL, error) {
	logger := logging.WithComponent("relay")

	payload, err := json.Marshal(request{Transcript: transcript})
	if err != nil {
		return nil, failure.New(failure.KindDecode, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, failure.New(failure.KindNetwork, op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, failure.Network(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure.Network(op, err)
	}

	logger.Debug().
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Msg("Relay responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, failure.BadStatus(op, resp.StatusCode, string(body))
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, failure.New(failure.KindEmptyBody, op, nil)
	}

	raw, err := DecodeLink(body)
	if err != nil {
		return nil, err
	}
	return ParseLink(raw)
}

// ParseLink requires an absolute URL (scheme and host).
func ParseLink(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, failure.New(failure.KindLinkParse, op, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, failure.Newf(failure.KindLinkParse, op, "%q is not an absolute URL", raw)
	}
	return u, nil
}
