package output

import (
	"fmt"
	"io"
	"time"

	"meeting-summary-service/internal/service/pipeline"
	"meeting-summary-service/internal/service/session"
)

type Formatter struct {
	w io.Writer

	lastStatus session.Status
	lastDone   int
	lastTotal  int
	seen       bool
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) RecordingStarted(path string) {
	fmt.Fprintf(f.w, "🎙️  Recording to %s (Ctrl+C to stop)\n", path)
}

func (f *Formatter) RecordingStopped(duration time.Duration) {
	fmt.Fprintf(f.w, "⏹️  Recording stopped (%s)\n", formatDuration(duration))
}

// Progress prints a line for every status change and chunk completion.
// Level and playback updates are ignored.
func (f *Formatter) Progress(s pipeline.Snapshot) {
	statusChanged := !f.seen || s.Status != f.lastStatus
	if !statusChanged && s.ChunksDone == f.lastDone && s.ChunksTotal == f.lastTotal {
		return
	}
	f.seen = true
	f.lastStatus = s.Status
	f.lastDone = s.ChunksDone
	f.lastTotal = s.ChunksTotal

	switch s.Status {
	case session.StatusPreparingPlayback:
		fmt.Fprintf(f.w, "💾 Finalizing recording...\n")
	case session.StatusEvaluatingSize:
		fmt.Fprintf(f.w, "📏 Checking file size...\n")
	case session.StatusTranscribing:
		switch {
		case statusChanged:
			fmt.Fprintf(f.w, "📝 Transcribing audio...\n")
		case s.ChunksDone < s.ChunksTotal:
			fmt.Fprintf(f.w, "📝 Transcribing chunk %d/%d...\n", s.ChunksDone+1, s.ChunksTotal)
		}
	case session.StatusRelaying:
		fmt.Fprintf(f.w, "🤖 Sending transcript for summary...\n")
	}
}

func (f *Formatter) Complete(s pipeline.Snapshot) {
	fmt.Fprintf(f.w, "✅ Summary ready: %s\n", s.ResultURL)
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
