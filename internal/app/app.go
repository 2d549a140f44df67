package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"meeting-summary-service/internal/config"
	"meeting-summary-service/internal/events"
	"meeting-summary-service/internal/media"
	"meeting-summary-service/internal/observability/logging"
	"meeting-summary-service/internal/observability/metrics"
	"meeting-summary-service/internal/retry"
	"meeting-summary-service/internal/schema"
	"meeting-summary-service/internal/service/audio"
	"meeting-summary-service/internal/service/chunk"
	"meeting-summary-service/internal/service/pipeline"
	"meeting-summary-service/internal/service/relay"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration

	Controller *pipeline.Controller
	Publisher  *events.Publisher
	Outbox     *events.Outbox

	closers []io.Closer
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// Options override collaborators, mainly for tests and the CLI.
type Options struct {
	Authorizer audio.Authorizer
	LogOutput  io.Writer
}

// New wires the pipeline and its collaborators from cfg.
func New(ctx context.Context, cfg *config.Configuration, opts Options) (*Application, error) {
	a := &Application{Cfg: cfg}
	a.setupLogger(opts.LogOutput)

	if cfg.Relay.Endpoint == "" {
		return nil, errors.New("relay endpoint is not configured (RELAY_ENDPOINT)")
	}
	if err := os.MkdirAll(cfg.Service.TempDir, 0o755); err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}

	m := metrics.DefaultMetrics
	tools := media.Tools{FFmpeg: cfg.Capture.FFmpeg, FFprobe: cfg.Capture.FFprobe, FFplay: cfg.Capture.FFplay}
	policy := retry.Policy{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff,
		MaxBackoff:     cfg.Retry.MaxBackoff,
		Metrics:        m,
	}

	transcriber, closer, err := NewTranscriber(ctx, cfg.STT, tools, policy, m)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	a.Publisher = events.New(&events.Config{
		Enabled:        cfg.Kafka.Enabled,
		Brokers:        cfg.Kafka.Brokers,
		TopicStatus:    cfg.Kafka.TopicStatus,
		TopicCompleted: cfg.Kafka.TopicCompleted,
		Principal:      cfg.Kafka.Principal,
	})
	a.Outbox = events.NewOutbox(a.Publisher, schema.New(), cfg.Kafka.OutboxSize)

	authorizer := opts.Authorizer
	if authorizer == nil {
		authorizer = newAuthorizer(cfg.Capture)
	}

	capture := audio.DefaultCaptureConfig()
	capture.FFmpeg = cfg.Capture.FFmpeg
	capture.InputFormat = cfg.Capture.InputFormat
	capture.Device = cfg.Capture.Device
	capture.SampleRate = cfg.Capture.SampleRate
	capture.Bitrate = cfg.Capture.Bitrate

	a.Controller = pipeline.New(pipeline.Config{
		TempDir:       cfg.Service.TempDir,
		SizeThreshold: cfg.Chunking.SizeThresholdBytes,
		ChunkSeconds:  cfg.Chunking.ChunkSeconds,
	}, pipeline.Deps{
		Recorder:    audio.NewFFmpegRecorder(capture),
		Player:      audio.NewFFplayPlayer(cfg.Capture.FFplay, tools),
		Authorizer:  authorizer,
		Settings:    audio.NewSystemSettingsOpener(),
		Transcriber: transcriber,
		Relay: relay.New(relay.Config{
			Endpoint: cfg.Relay.Endpoint,
			Timeout:  cfg.Relay.Timeout,
			Retry:    policy,
		}, m),
		Prober:   tools,
		Splitter: &chunk.Splitter{Exporter: tools, TempDir: cfg.Service.TempDir, Metrics: m},
		Events:   a.Outbox,
		Metrics:  m,
	})

	a.Logger.Info().
		Str("sttProvider", cfg.STT.Provider).
		Str("relay", cfg.Relay.Endpoint).
		Bool("kafka", cfg.Kafka.Enabled).
		Int("retryAttempts", policy.MaxAttempts).
		Msg("Meeting summary application created")
	return a, nil
}

func newAuthorizer(cfg config.CaptureConfig) audio.Authorizer {
	if cfg.AuthMode == "granted" {
		return audio.NewStaticAuthorizer(audio.AuthAuthorized, true)
	}
	return audio.NewFileAuthorizer(cfg.AuthStateFile)
}

// setupLogger configures zerolog for the service.
func (a *Application) setupLogger(out io.Writer) {
	logging.Init(logging.Config{
		Level:      a.Cfg.Observability.LogLevel,
		Format:     a.Cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
		Output:     out,
	})
	a.Logger = logging.Logger().With().
		Str("service", a.Cfg.Service.Name).
		Str("component", "application").
		Logger()
}

// Start runs the controller loop and the event outbox.
func (a *Application) Start(ctx context.Context) error {
	if a.running {
		return errors.New("application already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.running = true

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.Outbox.Run(runCtx)
	}()
	go func() {
		defer a.wg.Done()
		a.Controller.Run(runCtx)
	}()

	a.StartupTime = time.Now().UTC()
	a.Logger.Info().Time("startupTime", a.StartupTime).Msg("Meeting summary service starting")
	return nil
}

// Ready reports whether the controller accepts work.
func (a *Application) Ready() error {
	if !a.running {
		return errors.New("application not started")
	}
	return nil
}

// Shutdown stops the pipeline, drains queued events and closes clients.
func (a *Application) Shutdown() {
	a.Logger.Info().Msg("Meeting summary service shutting down")

	a.Controller.Close()
	if a.running {
		a.Outbox.Close()
		a.cancel()
		a.wg.Wait()
		a.running = false
	}
	if err := a.Publisher.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Error closing event publisher")
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing client")
		}
	}
}
