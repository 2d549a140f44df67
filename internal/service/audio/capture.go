package audio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"meeting-summary-service/internal/failure"
	"meeting-summary-service/internal/observability/logging"
)

// LevelFunc receives normalized input levels, roughly every 50 ms.
type LevelFunc func(level float64)

// Recorder starts microphone captures.
type Recorder interface {
	Start(ctx context.Context, path string, onLevel LevelFunc) (Recording, error)
}

// Recording is a capture in progress.
type Recording interface {
	// Stop finalizes the file and returns its path.
	Stop(ctx context.Context) (string, error)
	Path() string
}

// CaptureConfig configures the ffmpeg capture.
type CaptureConfig struct {
	FFmpeg      string
	InputFormat string // avfoundation, pulse, alsa, dshow
	Device      string // e.g. ":default" on macOS
	SampleRate  int
	Channels    int
	Bitrate     string
	// StartGrace is how long Start waits for ffmpeg to fail on a bad device.
	StartGrace time.Duration
	// StopTimeout bounds the graceful shutdown before the process is killed.
	StopTimeout time.Duration
}

// DefaultCaptureConfig records mono 44.1 kHz AAC from the default macOS input.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		FFmpeg:      "ffmpeg",
		InputFormat: "avfoundation",
		Device:      ":default",
		SampleRate:  44100,
		Channels:    1,
		Bitrate:     "192k",
		StartGrace:  300 * time.Millisecond,
		StopTimeout: 5 * time.Second,
	}
}

// FFmpegRecorder captures the microphone to an M4A file with ffmpeg and
// reports levels through an astats meter filter.
type FFmpegRecorder struct {
	cfg CaptureConfig
}

// NewFFmpegRecorder creates a recorder.
func NewFFmpegRecorder(cfg CaptureConfig) *FFmpegRecorder {
	return &FFmpegRecorder{cfg: cfg}
}

// Args returns the ffmpeg arguments for recording to path.
func (r *FFmpegRecorder) Args(path string) []string {
	// 50 ms metering windows at the configured sample rate.
	window := r.cfg.SampleRate / 20
	filter := fmt.Sprintf(
		"asetnsamples=n=%d:p=0,astats=metadata=1:reset=1,ametadata=mode=print:key=lavfi.astats.Overall.RMS_level",
		window,
	)
	return []string{
		"-hide_banner", "-nostats", "-loglevel", "info",
		"-f", r.cfg.InputFormat,
		"-i", r.cfg.Device,
		"-ac", strconv.Itoa(r.cfg.Channels),
		"-ar", strconv.Itoa(r.cfg.SampleRate),
		"-af", filter,
		"-c:a", "aac",
		"-b:a", r.cfg.Bitrate,
		"-movflags", "+faststart",
		"-y",
		path,
	}
}

// Start launches ffmpeg. Any failure to launch is a RecorderInitError.
func (r *FFmpegRecorder) Start(ctx context.Context, path string, onLevel LevelFunc) (Recording, error) {
	cmd := exec.Command(r.cfg.FFmpeg, r.Args(path)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, failure.New(failure.KindRecorderInit, "start capture", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, failure.New(failure.KindRecorderInit, "start capture", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, failure.New(failure.KindRecorderInit, "start capture", err)
	}

	rec := &ffmpegRecording{
		cmd:     cmd,
		stdin:   stdin,
		path:    path,
		done:    make(chan struct{}),
		timeout: r.cfg.StopTimeout,
	}
	go rec.meter(stderr, onLevel)
	go func() {
		rec.waitErr = cmd.Wait()
		close(rec.done)
	}()

	if r.cfg.StartGrace > 0 {
		select {
		case <-rec.done:
			return nil, failure.Newf(failure.KindRecorderInit, "start capture",
				"ffmpeg exited: %v: %s", rec.waitErr, rec.tail())
		case <-ctx.Done():
			rec.kill()
			return nil, failure.New(failure.KindRecorderInit, "start capture", ctx.Err())
		case <-time.After(r.cfg.StartGrace):
		}
	}
	return rec, nil
}

type ffmpegRecording struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	path    string
	done    chan struct{}
	waitErr error
	timeout time.Duration

	mu       sync.Mutex
	lastLogs []string
	stopOnce sync.Once
}

func (r *ffmpegRecording) Path() string { return r.path }

// meter parses ffmpeg's log output for level readings and keeps a short
// tail for error reports.
func (r *ffmpegRecording) meter(stderr io.Reader, onLevel LevelFunc) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		if db, ok := parseLevelLine(line); ok {
			if onLevel != nil {
				onLevel(NormalizeLevel(db))
			}
			continue
		}
		if strings.Contains(line, "frame:") && strings.Contains(line, "pts_time:") {
			continue
		}
		r.mu.Lock()
		r.lastLogs = append(r.lastLogs, line)
		if len(r.lastLogs) > 10 {
			r.lastLogs = r.lastLogs[1:]
		}
		r.mu.Unlock()
	}
}

func (r *ffmpegRecording) tail() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.lastLogs, "\n")
}

// Stop asks ffmpeg to quit so it writes the container trailer, then waits.
func (r *ffmpegRecording) Stop(ctx context.Context) (string, error) {
	logger := logging.WithComponent("capture")

	r.stopOnce.Do(func() {
		if _, err := io.WriteString(r.stdin, "q\n"); err != nil {
			logger.Debug().Err(err).Msg("ffmpeg stdin closed before stop")
		}
		_ = r.stdin.Close()
	})

	timeout := r.timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	select {
	case <-r.done:
	case <-time.After(timeout):
		logger.Warn().Str("path", r.path).Msg("ffmpeg did not exit in time, killing")
		r.kill()
		<-r.done
	case <-ctx.Done():
		r.kill()
		<-r.done
		return r.path, ctx.Err()
	}

	var exitErr *exec.ExitError
	if r.waitErr != nil && !errors.As(r.waitErr, &exitErr) {
		return r.path, fmt.Errorf("ffmpeg wait: %w", r.waitErr)
	}
	if r.waitErr != nil {
		// ffmpeg exits non-zero when interrupted; the file is still checked by the caller.
		logger.Debug().Err(r.waitErr).Str("ffmpeg", r.tail()).Msg("ffmpeg exited with status")
	}
	return r.path, nil
}

func (r *ffmpegRecording) kill() {
	if r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
}
