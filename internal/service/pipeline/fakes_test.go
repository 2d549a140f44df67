package pipeline

import (
	"context"
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"

	"meeting-summary-service/internal/models"
	"meeting-summary-service/internal/service/audio"
)

type fakeRecorder struct {
	mu      sync.Mutex
	content []byte
	level   float64
	err     error
	started []string
}

func (r *fakeRecorder) Start(_ context.Context, path string, onLevel audio.LevelFunc) (audio.Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.started = append(r.started, path)
	if err := os.WriteFile(path, r.content, 0o600); err != nil {
		return nil, err
	}
	if onLevel != nil && r.level > 0 {
		onLevel(r.level)
	}
	return &fakeRecording{path: path}, nil
}

type fakeRecording struct {
	mu      sync.Mutex
	path    string
	stopped int
}

func (r *fakeRecording) Stop(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped++
	return r.path, nil
}

func (r *fakeRecording) Path() string { return r.path }

type fakePlayer struct {
	mu       sync.Mutex
	duration float64
	err      error
	tracks   []*fakeTrack
}

func (p *fakePlayer) Open(_ context.Context, path string, notify func(audio.PlaybackEvent)) (audio.Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	t := &fakeTrack{duration: p.duration, notify: notify}
	p.tracks = append(p.tracks, t)
	return t, nil
}

func (p *fakePlayer) last() *fakeTrack {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tracks) == 0 {
		return nil
	}
	return p.tracks[len(p.tracks)-1]
}

type fakeTrack struct {
	mu       sync.Mutex
	duration float64
	position float64
	playing  bool
	closed   bool
	notify   func(audio.PlaybackEvent)
}

func (t *fakeTrack) Duration() float64 { return t.duration }

func (t *fakeTrack) Position() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position
}

func (t *fakeTrack) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

func (t *fakeTrack) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playing = true
	return nil
}

func (t *fakeTrack) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playing = false
	return nil
}

func (t *fakeTrack) Seek(pos float64) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pos < 0 {
		pos = 0
	}
	if pos > t.duration {
		pos = t.duration
	}
	t.position = pos
	return pos, nil
}

func (t *fakeTrack) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.playing = false
	return nil
}

func (t *fakeTrack) end() {
	t.mu.Lock()
	t.playing = false
	t.position = t.duration
	t.mu.Unlock()
	t.notify(audio.PlaybackEvent{Kind: audio.PlaybackEnded, Position: t.duration, Duration: t.duration})
}

type fakeProber struct {
	duration float64
	err      error
}

func (p fakeProber) Probe(context.Context, string) (float64, error) {
	return p.duration, p.err
}

type exportCall struct {
	start, duration float64
}

type fakeExporter struct {
	mu    sync.Mutex
	calls []exportCall
}

func (e *fakeExporter) ExtractSegment(_ context.Context, _, dst string, start, duration float64) error {
	e.mu.Lock()
	e.calls = append(e.calls, exportCall{start: start, duration: duration})
	e.mu.Unlock()
	return os.WriteFile(dst, []byte("segment"), 0o600)
}

func (e *fakeExporter) snapshot() []exportCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]exportCall(nil), e.calls...)
}

// chunkIndex extracts i from "<name>-chunk-<i>.m4a", or -1.
func chunkIndex(fileName string) int {
	i := strings.LastIndex(fileName, "-chunk-")
	if i < 0 {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSuffix(fileName[i+len("-chunk-"):], ".m4a"))
	if err != nil {
		return -1
	}
	return n
}

type fakeTranscriber struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, fileName string) (string, error)
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, _ []byte, fileName string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fileName)
	f.mu.Unlock()
	return f.fn(ctx, fileName)
}

func (f *fakeTranscriber) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRelay struct {
	mu    sync.Mutex
	calls []string
	link  string
	err   error
}

func (r *fakeRelay) Relay(ctx context.Context, transcript string) (*url.URL, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, transcript)
	if r.err != nil {
		return nil, r.err
	}
	if r.link == "" {
		return nil, errors.New("no link configured")
	}
	return url.Parse(r.link)
}

func (r *fakeRelay) transcripts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeSink struct {
	mu     sync.Mutex
	events []models.Event
}

func (s *fakeSink) Emit(ev models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// statuses returns the distinct consecutive statuses emitted for sessionID.
func (s *fakeSink) statuses(sessionID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, ev := range s.events {
		st, ok := ev.(models.SessionStatusEvent)
		if !ok || st.SessionID != sessionID {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == st.Status {
			continue
		}
		out = append(out, st.Status)
	}
	return out
}

func (s *fakeSink) completed() []models.SessionCompletedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SessionCompletedEvent
	for _, ev := range s.events {
		if c, ok := ev.(models.SessionCompletedEvent); ok {
			out = append(out, c)
		}
	}
	return out
}
