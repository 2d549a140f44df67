package pipeline

import (
	"context"
	"time"

	"meeting-summary-service/internal/failure"
	"meeting-summary-service/internal/models"
	"meeting-summary-service/internal/observability/logging"
	"meeting-summary-service/internal/service/audio"
	"meeting-summary-service/internal/service/session"
)

func (c *Controller) handle(msg message) {
	if ev, ok := msg.(stageEvent); ok && c.isStale(ev) {
		c.dropStale(ev)
		return
	}

	switch m := msg.(type) {
	case startCmd:
		c.handleStart(m)
	case stopCmd:
		m.reply <- c.handleStop()
	case ingestCmd:
		m.reply <- c.handleIngest(m)
	case playbackCmd:
		m.reply <- c.handlePlayback(m)
	case reportErrorCmd:
		c.state.ErrorMessage = m.err.Error()
		c.state.ErrorKind = failure.KindOf(m.err).String()
		c.publish()
		m.reply <- struct{}{}

	case levelEvt:
		if c.sess.Status() == session.StatusRecording {
			c.state.Level = m.level
			c.publish()
		}
	case recorderStarted:
		c.handleRecorderStarted(m)
	case playbackPrepared:
		c.track = m.track
		c.state.HasRecording = true
		c.state.Playing = false
		c.state.Duration = m.track.Duration()
		c.state.Position = 0
		c.publish()
	case playbackEvt:
		c.handlePlaybackEvent(m.ev)
	case statusEvt:
		c.advance(m.status)
	case progressEvt:
		c.state.ChunksDone = m.done
		c.state.ChunksTotal = m.total
		c.publish()
		c.emitStatus("")
	case completedEvt:
		c.handleCompleted(m)
	case failedEvt:
		c.fail(m.err)
	default:
		c.logger.Warn().Msgf("Unknown inbox message %T", msg)
	}
}

func (c *Controller) isStale(ev stageEvent) bool {
	return c.sess == nil || c.sess.ID != ev.session()
}

// dropStale discards an event of a superseded session and releases any
// resource it carries.
func (c *Controller) dropStale(ev stageEvent) {
	switch m := ev.(type) {
	case recorderStarted:
		c.stopRecording(m.rec)
	case playbackPrepared:
		_ = m.track.Close()
	case levelEvt, playbackEvt:
		// High-rate updates from a closing source are expected.
		return
	}
	c.deps.Metrics.RecordStaleEvent(ev.name())
	c.logger.Debug().
		Str("event", ev.name()).
		Str("staleSession", ev.session()).
		Msg("Dropped event of superseded session")
}

func (c *Controller) handleStart(cmd startCmd) {
	c.abandon()

	s := session.New(session.OriginRecording, "")
	s.SourceAudio = session.RecordingPath(c.cfg.TempDir, s.ID)
	_ = s.Transition(session.StatusRecording)
	c.sess = s
	c.deps.Metrics.RecordSessionStart(string(s.Origin))

	c.state = Snapshot{
		SessionID:  s.ID,
		Origin:     string(s.Origin),
		Status:     session.StatusRecording,
		Recording:  true,
		SourcePath: s.SourceAudio,
	}
	c.publish()
	c.emitStatus(session.StatusIdle.String())

	logger := logging.WithSession("pipeline", s.ID)
	logger.Info().Str("path", s.SourceAudio).Msg("Recording session started")
	cmd.reply <- startReply{sessionID: s.ID, path: s.SourceAudio}
}

func (c *Controller) handleRecorderStarted(m recorderStarted) {
	if c.sess.Status() != session.StatusRecording {
		c.stopRecording(m.rec)
		return
	}
	c.rec = m.rec
	if c.pendingStop {
		c.pendingStop = false
		c.finishRecording()
	}
}

func (c *Controller) handleStop() error {
	if c.sess == nil || c.sess.Status() != session.StatusRecording {
		return nil
	}
	if c.rec == nil {
		// Capture is still starting; stop as soon as it reports in.
		c.pendingStop = true
		return nil
	}
	c.finishRecording()
	return nil
}

func (c *Controller) finishRecording() {
	rec := c.rec
	c.rec = nil
	s := c.sess

	if err := s.Transition(session.StatusPreparingPlayback); err != nil {
		c.logger.Error().Err(err).Msg("Cannot finish recording")
		return
	}
	prev := c.state.Status
	c.state.Status = session.StatusPreparingPlayback
	c.state.Recording = false
	c.state.Level = 0
	c.publish()
	c.emitStatus(prev.String())

	c.spawn(func(ctx context.Context) {
		c.runRecordingJob(ctx, s, rec)
	})
}

func (c *Controller) handleIngest(cmd ingestCmd) error {
	if c.sess != nil {
		switch c.sess.Status() {
		case session.StatusIdle, session.StatusComplete, session.StatusFailed:
		default:
			return ErrInvalidState
		}
	}
	c.abandon()

	s := session.New(session.OriginIngest, cmd.path)
	_ = s.Transition(session.StatusEvaluatingSize)
	c.sess = s
	c.deps.Metrics.RecordSessionStart(string(s.Origin))

	c.state = Snapshot{
		SessionID:  s.ID,
		Origin:     string(s.Origin),
		Status:     session.StatusEvaluatingSize,
		Uploading:  true,
		SourcePath: s.SourceAudio,
	}
	c.publish()
	c.emitStatus(session.StatusIdle.String())

	logger := logging.WithSession("pipeline", s.ID)
	logger.Info().Str("path", cmd.path).Int64("bytes", cmd.size).Msg("Ingest session started")
	size := cmd.size
	c.spawn(func(ctx context.Context) {
		c.runIngestJob(ctx, s, size)
	})
	return nil
}

func (c *Controller) handlePlayback(cmd playbackCmd) error {
	if c.track == nil {
		return ErrNoRecording
	}

	var err error
	switch cmd.action {
	case actionPlay:
		err = c.track.Play()
	case actionPause:
		err = c.track.Pause()
	case actionSeek:
		var pos float64
		pos, err = c.track.Seek(cmd.position)
		c.state.Position = pos
	}
	c.state.Playing = c.track.Playing()
	if cmd.action != actionSeek {
		c.state.Position = c.track.Position()
	}
	c.publish()
	return err
}

func (c *Controller) handlePlaybackEvent(ev audio.PlaybackEvent) {
	if c.track == nil {
		return
	}
	switch ev.Kind {
	case audio.PlaybackEnded:
		c.state.Playing = false
		c.state.Position = ev.Duration
	default:
		c.state.Position = ev.Position
	}
	c.publish()
}

// advance applies a forward status transition reported by the job.
func (c *Controller) advance(to session.Status) {
	prev := c.sess.Status()
	if err := c.sess.Transition(to); err != nil {
		c.logger.Warn().Err(err).Str("session", c.sess.ID).Msg("Ignoring status event")
		return
	}
	c.state.Status = to
	c.state.Uploading = to.IsUploading()
	c.publish()
	c.emitStatus(prev.String())
}

func (c *Controller) handleCompleted(m completedEvt) {
	prev := c.sess.Status()
	if err := c.sess.Transition(session.StatusComplete); err != nil {
		c.logger.Warn().Err(err).Str("session", c.sess.ID).Msg("Ignoring completion")
		return
	}
	c.cancelJob = nil

	c.state.Status = session.StatusComplete
	c.state.Uploading = false
	c.state.ResultURL = m.link.String()
	c.publish()
	c.emitStatus(prev.String())

	elapsed := time.Since(c.sess.CreatedAt)
	c.deps.Metrics.RecordSessionEnd("", elapsed.Seconds())
	c.emit(models.SessionCompletedEvent{
		EventType:       models.EventSessionCompleted,
		SessionID:       c.sess.ID,
		Origin:          string(c.sess.Origin),
		ResultURL:       m.link.String(),
		Chunked:         m.chunked,
		ChunkCount:      m.chunkCount,
		TranscriptChars: m.transcriptChars,
		DurationMs:      elapsed.Milliseconds(),
		Timestamp:       time.Now().UnixMilli(),
	})

	logger := logging.WithSession("pipeline", c.sess.ID)
	logger.Info().
		Str("resultUrl", m.link.String()).
		Bool("chunked", m.chunked).
		Int("chunks", m.chunkCount).
		Dur("elapsed", elapsed).
		Msg("Session complete")
}

// fail moves the current session to FAILED and surfaces err verbatim.
func (c *Controller) fail(err error) {
	prev := c.sess.Status()
	if !c.sess.Fail() {
		return
	}
	c.cancelJob = nil
	kind := failure.KindOf(err).String()

	c.state.Status = session.StatusFailed
	c.state.Recording = false
	c.state.Level = 0
	c.state.Uploading = false
	c.state.ErrorMessage = err.Error()
	c.state.ErrorKind = kind
	c.publish()
	c.emitStatus(prev.String())

	c.deps.Metrics.RecordSessionEnd(kind, time.Since(c.sess.CreatedAt).Seconds())
	logger := logging.WithSession("pipeline", c.sess.ID)
	logger.Error().
		Err(err).
		Str("kind", kind).
		Str("from", prev.String()).
		Msg("Session failed")
}

// abandon cancels the current session's work and releases its capture and
// playback resources. Later events of that session become stale.
func (c *Controller) abandon() {
	if c.cancelJob != nil {
		c.cancelJob()
		c.cancelJob = nil
	}
	if c.rec != nil {
		c.stopRecording(c.rec)
		c.rec = nil
	}
	c.pendingStop = false
	if c.track != nil {
		_ = c.track.Close()
		c.track = nil
	}
	if c.sess != nil {
		if st := c.sess.Status(); st != session.StatusIdle && !st.IsTerminal() {
			c.deps.Metrics.RecordSessionEnd("Superseded", time.Since(c.sess.CreatedAt).Seconds())
			logger := logging.WithSession("pipeline", c.sess.ID)
			logger.Info().Str("status", st.String()).Msg("Session superseded")
		}
	}
}

func (c *Controller) stopRecording(rec audio.Recording) {
	c.jobs.Add(1)
	go func() {
		defer c.jobs.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := rec.Stop(ctx); err != nil {
			c.logger.Warn().Err(err).Str("path", rec.Path()).Msg("Failed to stop abandoned recording")
		}
	}()
}

func (c *Controller) spawn(fn func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(c.runCtx)
	c.cancelJob = cancel
	c.jobs.Add(1)
	go func() {
		defer c.jobs.Done()
		defer cancel()
		fn(ctx)
	}()
}

// emitStatus publishes a status event for the current state. previous is
// empty for progress updates within one status.
func (c *Controller) emitStatus(previous string) {
	c.emit(models.SessionStatusEvent{
		EventType:      models.EventSessionStatus,
		SessionID:      c.state.SessionID,
		Origin:         c.state.Origin,
		Status:         c.state.Status.String(),
		PreviousStatus: previous,
		ErrorKind:      c.state.ErrorKind,
		ErrorMessage:   c.state.ErrorMessage,
		ChunksDone:     c.state.ChunksDone,
		ChunksTotal:    c.state.ChunksTotal,
		Timestamp:      time.Now().UnixMilli(),
	})
}

func (c *Controller) emit(ev models.Event) {
	if c.deps.Events != nil {
		c.deps.Events.Emit(ev)
	}
}
