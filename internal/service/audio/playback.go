package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"meeting-summary-service/internal/observability/logging"
)

// PlaybackEventKind distinguishes position ticks from end of media.
type PlaybackEventKind int

const (
	PlaybackPosition PlaybackEventKind = iota
	PlaybackEnded
)

// PlaybackEvent is delivered by a Track while it plays.
type PlaybackEvent struct {
	Kind     PlaybackEventKind
	Position float64
	Duration float64
}

// Player opens recordings for playback.
type Player interface {
	Open(ctx context.Context, path string, notify func(PlaybackEvent)) (Track, error)
}

// Track is one loaded recording.
type Track interface {
	Duration() float64
	Position() float64
	Playing() bool
	Play() error
	Pause() error
	// Seek moves to t clamped to [0, Duration] and returns the new position.
	Seek(t float64) (float64, error)
	Close() error
}

// DurationProber reports the duration of an audio file in seconds.
type DurationProber interface {
	Probe(ctx context.Context, path string) (float64, error)
}

// process is a running playback subprocess.
type process interface {
	Wait() error
	Kill() error
}

type startFunc func(name string, args ...string) (process, error)

type cmdProcess struct{ cmd *exec.Cmd }

func (p cmdProcess) Wait() error { return p.cmd.Wait() }
func (p cmdProcess) Kill() error { return p.cmd.Process.Kill() }

func startCommand(name string, args ...string) (process, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmdProcess{cmd: cmd}, nil
}

// FFplayPlayer plays files with a headless ffplay process per play span.
type FFplayPlayer struct {
	FFplay string
	Prober DurationProber
	// Tick is the position report interval.
	Tick  time.Duration
	start startFunc
}

// NewFFplayPlayer creates a player reporting positions every 100 ms.
func NewFFplayPlayer(ffplay string, prober DurationProber) *FFplayPlayer {
	return &FFplayPlayer{FFplay: ffplay, Prober: prober, Tick: 100 * time.Millisecond, start: startCommand}
}

// Open probes the file and returns a paused track at position 0.
func (p *FFplayPlayer) Open(ctx context.Context, path string, notify func(PlaybackEvent)) (Track, error) {
	duration, err := p.Prober.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("prepare playback: %w", err)
	}
	start := p.start
	if start == nil {
		start = startCommand
	}
	tick := p.Tick
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	if notify == nil {
		notify = func(PlaybackEvent) {}
	}
	return &ffplayTrack{
		ffplay:   p.FFplay,
		path:     path,
		duration: duration,
		notify:   notify,
		tick:     tick,
		start:    start,
	}, nil
}

type ffplayTrack struct {
	ffplay   string
	path     string
	duration float64
	notify   func(PlaybackEvent)
	tick     time.Duration
	start    startFunc

	mu        sync.Mutex
	proc      process
	gen       int
	playing   bool
	basePos   float64
	startedAt time.Time
	stopTick  chan struct{}
	closed    bool
}

func (t *ffplayTrack) Duration() float64 { return t.duration }

func (t *ffplayTrack) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

func (t *ffplayTrack) Position() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.positionLocked()
}

func (t *ffplayTrack) positionLocked() float64 {
	if !t.playing {
		return t.basePos
	}
	return clamp(t.basePos+time.Since(t.startedAt).Seconds(), 0, t.duration)
}

// Play starts from the current position. Playing at the end restarts from 0.
func (t *ffplayTrack) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("track closed")
	}
	if t.playing {
		return nil
	}
	if t.basePos >= t.duration {
		t.basePos = 0
	}
	return t.spawnLocked()
}

func (t *ffplayTrack) spawnLocked() error {
	proc, err := t.start(t.ffplay,
		"-nodisp", "-autoexit",
		"-loglevel", "quiet",
		"-ss", strconv.FormatFloat(t.basePos, 'f', 3, 64),
		t.path,
	)
	if err != nil {
		return fmt.Errorf("start ffplay: %w", err)
	}

	t.gen++
	gen := t.gen
	t.proc = proc
	t.playing = true
	t.startedAt = time.Now()
	t.stopTick = make(chan struct{})

	go t.ticker(gen, t.stopTick)
	go t.waitExit(gen, proc)
	return nil
}

func (t *ffplayTrack) ticker(gen int, stop <-chan struct{}) {
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.gen != gen || !t.playing {
				t.mu.Unlock()
				return
			}
			pos := t.positionLocked()
			t.mu.Unlock()
			t.notify(PlaybackEvent{Kind: PlaybackPosition, Position: pos, Duration: t.duration})
		}
	}
}

// waitExit handles natural end of media. Exits of processes we killed are
// ignored through the generation check.
func (t *ffplayTrack) waitExit(gen int, proc process) {
	err := proc.Wait()

	t.mu.Lock()
	if t.gen != gen || !t.playing {
		t.mu.Unlock()
		return
	}
	t.playing = false
	t.basePos = t.duration
	t.proc = nil
	close(t.stopTick)
	t.mu.Unlock()

	if err != nil {
		logger := logging.WithComponent("playback")
		logger.Debug().Err(err).Str("path", t.path).Msg("ffplay exited with error")
	}
	t.notify(PlaybackEvent{Kind: PlaybackEnded, Position: t.duration, Duration: t.duration})
}

func (t *ffplayTrack) stopLocked() {
	if !t.playing {
		return
	}
	t.basePos = t.positionLocked()
	t.playing = false
	t.gen++
	close(t.stopTick)
	if t.proc != nil {
		_ = t.proc.Kill()
		t.proc = nil
	}
}

func (t *ffplayTrack) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	return nil
}

func (t *ffplayTrack) Seek(pos float64) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	target := clamp(pos, 0, t.duration)
	wasPlaying := t.playing
	t.stopLocked()
	t.basePos = target
	if wasPlaying && target < t.duration {
		if err := t.spawnLocked(); err != nil {
			return target, err
		}
	}
	return target, nil
}

func (t *ffplayTrack) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.closed = true
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
