package app

import (
	"context"
	"fmt"
	"io"

	"meeting-summary-service/internal/config"
	"meeting-summary-service/internal/media"
	"meeting-summary-service/internal/observability/metrics"
	"meeting-summary-service/internal/retry"
	"meeting-summary-service/internal/service/stt"
	"meeting-summary-service/internal/service/stt/google"
	"meeting-summary-service/internal/service/stt/mock"
	"meeting-summary-service/internal/service/stt/openai"
	"meeting-summary-service/internal/service/stt/whisper"
)

// NewTranscriber builds the configured STT provider wrapped with metrics and
// the retry policy. The returned closer is non-nil when the provider holds a
// connection.
func NewTranscriber(ctx context.Context, cfg config.STTConfig, tools media.Tools, policy retry.Policy, m *metrics.Metrics) (stt.Transcriber, io.Closer, error) {
	var (
		provider stt.Transcriber
		closer   io.Closer
	)

	switch cfg.Provider {
	case stt.ProviderWhisper, "":
		if cfg.APIKey == "" {
			return nil, nil, fmt.Errorf("whisper provider requires STT_API_KEY")
		}
		provider = whisper.New(whisper.Config{
			Endpoint: cfg.Endpoint,
			APIKey:   cfg.APIKey,
			Model:    cfg.Model,
			Language: cfg.Language,
			Timeout:  cfg.Timeout,
		})
	case stt.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, nil, fmt.Errorf("openai provider requires STT_API_KEY")
		}
		provider = openai.New(openai.Config{
			APIKey:   cfg.APIKey,
			Model:    cfg.Model,
			Language: cfg.Language,
			Timeout:  cfg.Timeout,
		})
	case stt.ProviderGoogle:
		adapter, err := google.NewWithConfig(ctx, google.Config{
			LanguageCode:    cfg.LanguageCode,
			SampleRateHz:    int32(cfg.SampleRateHz),
			AudioEncoding:   cfg.AudioEncoding,
			CredentialsFile: cfg.CredentialsFile,
		}, tools)
		if err != nil {
			return nil, nil, err
		}
		provider, closer = adapter, adapter
	case stt.ProviderMock:
		provider = mock.New()
	default:
		return nil, nil, fmt.Errorf("unknown STT provider %q", cfg.Provider)
	}

	if policy.Metrics == nil {
		policy.Metrics = m
	}
	name := cfg.Provider
	if name == "" {
		name = stt.ProviderWhisper
	}
	return stt.WithRetry(stt.Instrumented(name, provider, m), policy), closer, nil
}
