package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"meeting-summary-service/internal/failure"
	"meeting-summary-service/internal/media"
	"meeting-summary-service/internal/observability/logging"
	"meeting-summary-service/internal/service/audio"
	"meeting-summary-service/internal/service/chunk"
	"meeting-summary-service/internal/service/session"
)

// runRecordingJob finalizes a capture and runs it through the pipeline.
func (c *Controller) runRecordingJob(ctx context.Context, s *session.Session, rec audio.Recording) {
	logger := logging.WithSession("pipeline", s.ID)

	path, err := rec.Stop(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Warn().Err(err).Msg("Capture did not stop cleanly")
	}
	if path == "" {
		path = s.SourceAudio
	}

	size, err := media.FileSize(path)
	if err != nil || size == 0 {
		if err == nil {
			err = errors.New("file is empty")
		}
		c.post(failedEvt{sessionID: s.ID, err: failure.New(failure.KindEmptyRecording, "finalize recording", err)})
		return
	}

	c.preparePlayback(ctx, s.ID, path)
	c.post(statusEvt{sessionID: s.ID, status: session.StatusEvaluatingSize})
	c.transcribeAndRelay(ctx, s, path, size)
}

// runIngestJob runs an existing file through the pipeline. The session is
// already evaluating size.
func (c *Controller) runIngestJob(ctx context.Context, s *session.Session, size int64) {
	c.preparePlayback(ctx, s.ID, s.SourceAudio)
	c.transcribeAndRelay(ctx, s, s.SourceAudio, size)
}

// preparePlayback loads the file for review. Failure is logged only.
func (c *Controller) preparePlayback(ctx context.Context, sessionID, path string) {
	if c.deps.Player == nil {
		return
	}
	track, err := c.deps.Player.Open(ctx, path, func(ev audio.PlaybackEvent) {
		if ev.Kind == audio.PlaybackEnded {
			c.post(playbackEvt{sessionID: sessionID, ev: ev})
			return
		}
		c.trySend(playbackEvt{sessionID: sessionID, ev: ev})
	})
	if err != nil {
		logger := logging.WithSession("pipeline", sessionID)
		logger.Warn().Err(err).Str("path", path).Msg("Playback unavailable")
		return
	}
	c.post(playbackPrepared{sessionID: sessionID, track: track})
}

func (c *Controller) transcribeAndRelay(ctx context.Context, s *session.Session, path string, size int64) {
	logger := logging.WithSession("pipeline", s.ID)

	chunked := chunk.ShouldChunk(size, c.cfg.SizeThreshold)
	c.deps.Metrics.RecordTranscriptionPath(chunked)
	logger.Info().
		Int64("bytes", size).
		Int64("threshold", c.cfg.SizeThreshold).
		Bool("chunked", chunked).
		Msg("Transcription path selected")

	c.post(statusEvt{sessionID: s.ID, status: session.StatusTranscribing})

	var (
		transcript string
		chunkCount = 1
		err        error
	)
	if chunked {
		transcript, chunkCount, err = c.transcribeChunked(ctx, s.ID, path)
	} else {
		transcript, err = c.transcribeSingle(ctx, path)
	}
	if err != nil {
		c.post(failedEvt{sessionID: s.ID, err: err})
		return
	}

	c.post(statusEvt{sessionID: s.ID, status: session.StatusRelaying})
	link, err := c.deps.Relay.Relay(ctx, transcript)
	if err != nil {
		c.post(failedEvt{sessionID: s.ID, err: err})
		return
	}

	c.post(completedEvt{
		sessionID:       s.ID,
		link:            link,
		chunked:         chunked,
		chunkCount:      chunkCount,
		transcriptChars: len([]rune(transcript)),
	})
}

func (c *Controller) transcribeSingle(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", failure.New(failure.KindReadFailed, "read recording", err)
	}
	return c.deps.Transcriber.Transcribe(ctx, data, filepath.Base(path))
}

func (c *Controller) transcribeChunked(ctx context.Context, sessionID, path string) (string, int, error) {
	total, err := c.deps.Prober.Probe(ctx, path)
	if err != nil {
		return "", 0, failure.New(failure.KindUnknownDuration, "probe duration", err)
	}
	chunks, err := chunk.Plan(total, c.cfg.ChunkSeconds)
	if err != nil {
		return "", 0, err
	}

	logger := logging.WithSession("pipeline", sessionID)
	logger.Info().
		Float64("duration", total).
		Int("chunks", len(chunks)).
		Msg("Transcribing in chunks")
	c.post(progressEvt{sessionID: sessionID, done: 0, total: len(chunks)})

	text, err := c.deps.Splitter.TranscribeAll(ctx, chunk.Job{
		SessionID:   sessionID,
		Source:      path,
		Chunks:      chunks,
		Transcriber: c.deps.Transcriber,
		Progress: func(done, total int) {
			c.post(progressEvt{sessionID: sessionID, done: done, total: total})
		},
	})
	return text, len(chunks), err
}
