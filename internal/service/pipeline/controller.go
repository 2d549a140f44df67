// Package pipeline drives a meeting session from capture (or ingestion)
// through transcription and relay to a summary link.
//
// All session state is owned by a single loop goroutine. API calls and stage
// events from capture, playback and the session job enter through one inbox;
// observers read whole snapshots.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"meeting-summary-service/internal/failure"
	"meeting-summary-service/internal/models"
	"meeting-summary-service/internal/observability/logging"
	"meeting-summary-service/internal/observability/metrics"
	"meeting-summary-service/internal/service/audio"
	"meeting-summary-service/internal/service/chunk"
	"meeting-summary-service/internal/service/session"
	"meeting-summary-service/internal/service/stt"
)

const (
	DefaultSizeThreshold int64 = 20 * 1024 * 1024
	DefaultChunkSeconds        = 600.0

	inboxSize = 64
)

var (
	// ErrInvalidState is returned when an operation is not allowed in the
	// current session status.
	ErrInvalidState = errors.New("operation not allowed in current state")
	// ErrNoRecording is returned by playback commands when nothing is loaded.
	ErrNoRecording = errors.New("no recording loaded")
	// ErrClosed is returned after the controller loop has stopped.
	ErrClosed = errors.New("controller closed")
)

// Relayer hands a transcript to the summarization workflow.
type Relayer interface {
	Relay(ctx context.Context, transcript string) (*url.URL, error)
}

// EventSink receives session events. *events.Outbox satisfies it.
type EventSink interface {
	Emit(event models.Event)
}

// Config holds pipeline tuning.
type Config struct {
	// TempDir receives recordings. Empty means os.TempDir().
	TempDir string
	// SizeThreshold is the largest file transcribed in one request.
	SizeThreshold int64
	// ChunkSeconds is the length of each chunk above the threshold.
	ChunkSeconds float64
}

// Deps are the collaborators of the controller.
type Deps struct {
	Recorder    audio.Recorder
	Player      audio.Player
	Authorizer  audio.Authorizer
	Settings    audio.SettingsOpener
	Transcriber stt.Transcriber
	Relay       Relayer
	Prober      chunk.DurationProber
	Splitter    *chunk.Splitter
	Events      EventSink
	Metrics     *metrics.Metrics
}

// Controller is the single writer of session state.
type Controller struct {
	cfg    Config
	deps   Deps
	logger zerolog.Logger

	inbox   chan message
	quit    chan struct{}
	done    chan struct{}
	started atomic.Bool
	once    sync.Once
	jobs    sync.WaitGroup

	mu   sync.RWMutex
	snap Snapshot

	subsMu     sync.Mutex
	subs       map[int]chan Snapshot
	nextSub    int
	subsClosed bool

	// Owned by the loop goroutine.
	runCtx      context.Context
	state       Snapshot
	sess        *session.Session
	rec         audio.Recording
	pendingStop bool
	track       audio.Track
	cancelJob   context.CancelFunc
}

// New creates a controller. Run must be started before any command is issued.
func New(cfg Config, deps Deps) *Controller {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.SizeThreshold <= 0 {
		cfg.SizeThreshold = DefaultSizeThreshold
	}
	if cfg.ChunkSeconds <= 0 {
		cfg.ChunkSeconds = DefaultChunkSeconds
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.DefaultMetrics
	}
	if deps.Authorizer == nil {
		deps.Authorizer = audio.NewStaticAuthorizer(audio.AuthAuthorized, true)
	}

	now := time.Now()
	return &Controller{
		cfg:    cfg,
		deps:   deps,
		logger: logging.WithComponent("pipeline"),
		inbox:  make(chan message, inboxSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		subs:   make(map[int]chan Snapshot),
		snap:   Snapshot{Status: session.StatusIdle, UpdatedAt: now},
		state:  Snapshot{Status: session.StatusIdle, UpdatedAt: now},
	}
}

// Run processes commands and stage events until ctx is cancelled or Close
// is called. Run after Close returns immediately.
func (c *Controller) Run(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.runCtx = runCtx
	defer close(c.done)
	defer cancel()
	defer c.shutdown()

	if c.closing() {
		return
	}

	c.logger.Info().
		Int64("sizeThreshold", c.cfg.SizeThreshold).
		Float64("chunkSeconds", c.cfg.ChunkSeconds).
		Msg("Pipeline controller started")

	for {
		select {
		case <-runCtx.Done():
			return
		case <-c.quit:
			return
		case msg := <-c.inbox:
			// Close wins over anything still queued.
			if c.closing() {
				return
			}
			c.handle(msg)
		}
	}
}

// Close stops the loop, cancels in-flight work and waits for it to unwind.
// Commands issued after Close return ErrClosed whether or not Run was
// ever started.
func (c *Controller) Close() {
	c.once.Do(func() { close(c.quit) })
	if c.started.CompareAndSwap(false, true) {
		// Run never started and now never will.
		c.closeSubscribers()
		close(c.done)
	} else {
		<-c.done
	}
	c.jobs.Wait()
}

func (c *Controller) closing() bool {
	select {
	case <-c.quit:
		return true
	default:
		return false
	}
}

func (c *Controller) shutdown() {
	c.abandon()
	c.closeSubscribers()
	c.logger.Info().Msg("Pipeline controller stopped")
}

// Start begins a new recording session. Any session in flight is cancelled.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.authorize(ctx); err != nil {
		c.reportError(ctx, err)
		return err
	}

	reply := make(chan startReply, 1)
	if err := c.send(ctx, startCmd{reply: reply}); err != nil {
		return err
	}
	var r startReply
	select {
	case r = <-reply:
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	id := r.sessionID
	rec, err := c.deps.Recorder.Start(ctx, r.path, func(level float64) {
		c.trySend(levelEvt{sessionID: id, level: level})
	})
	if err != nil {
		if failure.KindOf(err) == failure.KindUnknown {
			err = failure.New(failure.KindRecorderInit, "start capture", err)
		}
		c.post(failedEvt{sessionID: id, err: err})
		return err
	}
	c.post(recorderStarted{sessionID: id, rec: rec})
	return nil
}

// authorize applies the microphone permission gate. NotDetermined prompts
// exactly once; Denied and Restricted fail without prompting.
func (c *Controller) authorize(ctx context.Context) error {
	switch state := c.deps.Authorizer.Status(ctx); state {
	case audio.AuthAuthorized:
		return nil
	case audio.AuthNotDetermined:
		granted, err := c.deps.Authorizer.Request(ctx)
		if err != nil {
			return failure.New(failure.KindPermissionDenied, "request microphone access", err)
		}
		if !granted {
			return failure.Newf(failure.KindPermissionDenied, "request microphone access", "microphone access was not granted")
		}
		return nil
	default:
		return failure.Newf(failure.KindPermissionDenied, "check microphone access",
			"microphone access is %s; enable it in the system privacy settings", state)
	}
}

// Stop ends the current recording and starts processing it. It is a no-op
// unless a recording is in progress.
func (c *Controller) Stop(ctx context.Context) error {
	reply := make(chan error, 1)
	return c.call(ctx, stopCmd{reply: reply}, reply)
}

// Ingest runs the pipeline on an existing audio file. It is only valid when
// no session is in progress.
func (c *Controller) Ingest(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", path, err)
	}
	if info.IsDir() || info.Size() == 0 {
		return failure.Newf(failure.KindEmptyRecording, "ingest", "%s is not a non-empty audio file", path)
	}

	reply := make(chan error, 1)
	return c.call(ctx, ingestCmd{path: path, size: info.Size(), reply: reply}, reply)
}

// Play resumes playback of the current recording.
func (c *Controller) Play(ctx context.Context) error {
	reply := make(chan error, 1)
	return c.call(ctx, playbackCmd{action: actionPlay, reply: reply}, reply)
}

// Pause pauses playback.
func (c *Controller) Pause(ctx context.Context) error {
	reply := make(chan error, 1)
	return c.call(ctx, playbackCmd{action: actionPause, reply: reply}, reply)
}

// Seek moves playback to t, clamped to [0, duration].
func (c *Controller) Seek(ctx context.Context, t float64) error {
	reply := make(chan error, 1)
	return c.call(ctx, playbackCmd{action: actionSeek, position: t, reply: reply}, reply)
}

// OpenPrivacySettings opens the platform microphone privacy pane.
func (c *Controller) OpenPrivacySettings(ctx context.Context) error {
	if c.deps.Settings == nil {
		return errors.New("privacy settings are not available on this platform")
	}
	return c.deps.Settings.OpenPrivacySettings(ctx)
}

// AwaitTerminal blocks until the current session completes or fails.
func (c *Controller) AwaitTerminal(ctx context.Context) (Snapshot, error) {
	ch, cancel := c.Subscribe()
	defer cancel()
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return c.Snapshot(), ErrClosed
			}
			if s.Status.IsTerminal() {
				return s, nil
			}
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
}

func (c *Controller) reportError(ctx context.Context, err error) {
	reply := make(chan struct{}, 1)
	if c.send(ctx, reportErrorCmd{err: err, reply: reply}) != nil {
		return
	}
	select {
	case <-reply:
	case <-c.done:
	case <-ctx.Done():
	}
}

func (c *Controller) call(ctx context.Context, msg message, reply chan error) error {
	if err := c.send(ctx, msg); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) send(ctx context.Context, msg message) error {
	if c.closing() {
		return ErrClosed
	}
	select {
	case c.inbox <- msg:
		return nil
	case <-c.quit:
		return ErrClosed
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post delivers a stage event. It only gives up once the loop is stopping.
func (c *Controller) post(msg message) {
	if c.closing() {
		return
	}
	select {
	case c.inbox <- msg:
	case <-c.quit:
	case <-c.done:
	}
}

// trySend drops the event when the inbox is full. Used for high-rate
// meter and position updates.
func (c *Controller) trySend(msg message) {
	select {
	case c.inbox <- msg:
	default:
	}
}
