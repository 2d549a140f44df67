// Package stt defines the interface for Speech-to-Text providers.
package stt

import (
	"context"
	"time"

	"meeting-summary-service/internal/failure"
	"meeting-summary-service/internal/observability/logging"
	"meeting-summary-service/internal/observability/metrics"
	"meeting-summary-service/internal/retry"
)

// Provider names accepted by configuration.
const (
	ProviderWhisper = "whisper"
	ProviderOpenAI  = "openai"
	ProviderGoogle  = "google"
	ProviderMock    = "mock"
)

// Transcriber converts one complete audio file to text.
type Transcriber interface {
	// Transcribe uploads audio (the bytes of an M4A file named fileName)
	// and returns the recognized text. Errors are *failure.Error values.
	Transcribe(ctx context.Context, audio []byte, fileName string) (string, error)
}

// TranscriberFunc adapts a function to the Transcriber interface.
type TranscriberFunc func(ctx context.Context, audio []byte, fileName string) (string, error)

func (f TranscriberFunc) Transcribe(ctx context.Context, audio []byte, fileName string) (string, error) {
	return f(ctx, audio, fileName)
}

// Instrumented wraps a provider with latency/error metrics and logging.
func Instrumented(provider string, next Transcriber, m *metrics.Metrics) Transcriber {
	logger := logging.WithProvider(provider)

	return TranscriberFunc(func(ctx context.Context, audio []byte, fileName string) (string, error) {
		start := time.Now()
		text, err := next.Transcribe(ctx, audio, fileName)
		elapsed := time.Since(start)

		m.RecordSTTRequest(provider, len(audio), elapsed.Seconds())
		if err != nil {
			m.RecordSTTError(provider, failure.KindOf(err).String())
			logger.Error().
				Err(err).
				Str("file", fileName).
				Int("bytes", len(audio)).
				Dur("latency", elapsed).
				Msg("Transcription failed")
			return "", err
		}

		logger.Info().
			Str("file", fileName).
			Int("bytes", len(audio)).
			Int("chars", len(text)).
			Dur("latency", elapsed).
			Msg("Transcription complete")
		return text, nil
	})
}

// WithRetry wraps next so transient failures are retried under p.
// A policy with MaxAttempts <= 1 returns next unchanged.
func WithRetry(next Transcriber, p retry.Policy) Transcriber {
	if !p.Enabled() {
		return next
	}
	return TranscriberFunc(func(ctx context.Context, audio []byte, fileName string) (string, error) {
		return retry.Do(ctx, p, "transcribe", func(ctx context.Context) (string, error) {
			return next.Transcribe(ctx, audio, fileName)
		})
	})
}
