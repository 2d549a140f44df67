package chunk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"meeting-summary-service/internal/failure"
	"meeting-summary-service/internal/observability/logging"
	"meeting-summary-service/internal/observability/metrics"
	"meeting-summary-service/internal/service/stt"
)

// Exporter extracts a time range of src into dst in the source's format.
type Exporter interface {
	ExtractSegment(ctx context.Context, src, dst string, start, duration float64) error
}

// DurationProber reports the duration of an audio file in seconds.
type DurationProber interface {
	Probe(ctx context.Context, path string) (float64, error)
}

// Splitter exports chunks lazily and drives sequential transcription.
type Splitter struct {
	Exporter Exporter
	// TempDir receives exported chunk files. Empty means os.TempDir().
	TempDir string
	Metrics *metrics.Metrics
}

// Job is one chunked transcription of a source file.
type Job struct {
	SessionID   string
	Source      string
	Chunks      []Chunk
	Transcriber stt.Transcriber
	// Progress, if set, is called after each chunk succeeds.
	Progress func(done, total int)
}

// ChunkPath returns the export target for c.
func (s *Splitter) ChunkPath(src string, c Chunk) string {
	dir := s.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(dir, fmt.Sprintf("%s-chunk-%d.m4a", base, c.Index))
}

// Export writes chunk c of src to a new temp file and returns its path.
func (s *Splitter) Export(ctx context.Context, src string, c Chunk) (string, error) {
	op := fmt.Sprintf("export chunk %d", c.Index)
	if err := ctx.Err(); err != nil {
		return "", failure.New(failure.KindExportFailed, op, err)
	}

	dst := s.ChunkPath(src, c)
	start := time.Now()
	if err := s.Exporter.ExtractSegment(ctx, src, dst, c.StartSeconds, c.DurationSeconds); err != nil {
		_ = os.Remove(dst)
		return "", failure.New(failure.KindExportFailed, op, err)
	}
	if s.Metrics != nil {
		s.Metrics.RecordChunkExport(time.Since(start).Seconds())
	}
	return dst, nil
}

// TranscribeAll runs export, read, transcribe, delete for each chunk in
// index order. The first failure aborts the job; no later chunk is
// attempted and no partial transcript is returned.
func (s *Splitter) TranscribeAll(ctx context.Context, job Job) (string, error) {
	total := len(job.Chunks)
	acc := NewAccumulator(total)

	for _, c := range job.Chunks {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := s.transcribeOne(ctx, job, c)
		if err != nil {
			_ = acc.Fail(c.Index, err)
			return "", fmt.Errorf("chunk %d/%d: %w", c.Index+1, total, err)
		}
		if err := acc.Set(c.Index, text); err != nil {
			return "", err
		}

		if s.Metrics != nil {
			s.Metrics.RecordChunkTranscribed()
		}
		if job.Progress != nil {
			job.Progress(acc.Filled(), total)
		}
	}

	return acc.Merge()
}

func (s *Splitter) transcribeOne(ctx context.Context, job Job, c Chunk) (string, error) {
	logger := logging.WithChunk(job.SessionID, c.Index, len(job.Chunks))

	path, err := s.Export(ctx, job.Source, c)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", path).Msg("Failed to delete chunk file")
		}
	}()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	audio, err := os.ReadFile(path)
	if err != nil {
		return "", failure.New(failure.KindExportFailed, fmt.Sprintf("read chunk %d", c.Index), err)
	}

	logger.Debug().
		Float64("start", c.StartSeconds).
		Float64("duration", c.DurationSeconds).
		Int("bytes", len(audio)).
		Msg("Transcribing chunk")

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return job.Transcriber.Transcribe(ctx, audio, filepath.Base(path))
}
