package pipeline

import (
	"net/url"

	"meeting-summary-service/internal/service/audio"
	"meeting-summary-service/internal/service/session"
)

// message is anything accepted by the controller inbox.
type message interface{}

// Commands from API callers. Reply channels are buffered so the loop never
// blocks on a caller that gave up.

type startReply struct {
	sessionID string
	path      string
}

type startCmd struct {
	reply chan startReply
}

type stopCmd struct {
	reply chan error
}

type ingestCmd struct {
	path  string
	size  int64
	reply chan error
}

type playbackAction int

const (
	actionPlay playbackAction = iota
	actionPause
	actionSeek
)

type playbackCmd struct {
	action   playbackAction
	position float64
	reply    chan error
}

type reportErrorCmd struct {
	err   error
	reply chan struct{}
}

// Stage events from capture, playback and the session job. Each carries the
// session it belongs to so that the loop can drop stale ones.

type stageEvent interface {
	session() string
	name() string
}

type levelEvt struct {
	sessionID string
	level     float64
}

type recorderStarted struct {
	sessionID string
	rec       audio.Recording
}

type playbackPrepared struct {
	sessionID string
	track     audio.Track
}

type playbackEvt struct {
	sessionID string
	ev        audio.PlaybackEvent
}

type statusEvt struct {
	sessionID string
	status    session.Status
}

type progressEvt struct {
	sessionID string
	done      int
	total     int
}

type completedEvt struct {
	sessionID       string
	link            *url.URL
	chunked         bool
	chunkCount      int
	transcriptChars int
}

type failedEvt struct {
	sessionID string
	err       error
}

func (e levelEvt) session() string         { return e.sessionID }
func (e recorderStarted) session() string  { return e.sessionID }
func (e playbackPrepared) session() string { return e.sessionID }
func (e playbackEvt) session() string      { return e.sessionID }
func (e statusEvt) session() string        { return e.sessionID }
func (e progressEvt) session() string      { return e.sessionID }
func (e completedEvt) session() string     { return e.sessionID }
func (e failedEvt) session() string        { return e.sessionID }

func (levelEvt) name() string         { return "level" }
func (recorderStarted) name() string  { return "recorder_started" }
func (playbackPrepared) name() string { return "playback_prepared" }
func (playbackEvt) name() string      { return "playback" }
func (statusEvt) name() string        { return "status" }
func (progressEvt) name() string      { return "progress" }
func (completedEvt) name() string     { return "completed" }
func (failedEvt) name() string        { return "failed" }
