// Package media wraps the ffmpeg command line tools used for probing,
// slicing, recording and playing audio files.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Tools holds the binary paths of the ffmpeg suite.
type Tools struct {
	FFmpeg  string
	FFprobe string
	FFplay  string
}

// DefaultTools resolves the binaries from PATH.
func DefaultTools() Tools {
	return Tools{
		FFmpeg:  "ffmpeg",
		FFprobe: "ffprobe",
		FFplay:  "ffplay",
	}
}

// Check verifies that every configured binary can be found.
func (t Tools) Check() error {
	for _, bin := range []string{t.FFmpeg, t.FFprobe, t.FFplay} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s not found. Install with: brew install ffmpeg", bin)
		}
	}
	return nil
}

// ErrNoDuration is returned when ffprobe reports no usable duration.
var ErrNoDuration = errors.New("media has no finite duration")

// Probe returns the duration of an audio file in seconds.
func (t Tools) Probe(ctx context.Context, path string) (float64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}

	cmd := exec.CommandContext(ctx, t.FFprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return ParseDuration(string(out))
}

// ParseDuration parses ffprobe's duration output.
func ParseDuration(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "N/A" {
		return 0, ErrNoDuration
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return 0, ErrNoDuration
	}
	return d, nil
}

// ExtractSegment copies [start, start+duration) of src into dst without
// re-encoding, keeping the source's compressed format.
func (t Tools) ExtractSegment(ctx context.Context, src, dst string, start, duration float64) error {
	cmd := exec.CommandContext(ctx, t.FFmpeg,
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-ss", formatSeconds(start),
		"-i", src,
		"-t", formatSeconds(duration),
		"-vn",
		"-c", "copy",
		dst,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract: %w\n%s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Transcode re-encodes an in-memory audio file to a mono stream of the
// given ffmpeg format and sample rate. The input goes through a temp file
// because M4A is not streamable from a pipe.
func (t Tools) Transcode(ctx context.Context, audio []byte, format string, sampleRate int) ([]byte, error) {
	in, err := os.CreateTemp("", "transcode-*.m4a")
	if err != nil {
		return nil, err
	}
	defer os.Remove(in.Name())

	if _, err := in.Write(audio); err != nil {
		in.Close()
		return nil, err
	}
	if err := in.Close(); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, t.FFmpeg,
		"-hide_banner", "-loglevel", "error",
		"-i", in.Name(),
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", format,
		"pipe:1",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg transcode: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// FileSize returns the size of path in bytes.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
