// Package mock provides a mock STT provider for running the pipeline without
// cloud credentials. Each call returns the next canned utterance.
package mock

import (
	"context"
	"sync"
	"time"
)

// DefaultUtterances provides sample transcripts for simulation.
var DefaultUtterances = []string{
	"오늘 회의를 시작하겠습니다",
	"지난주 진행 상황을 공유해 주세요",
	"배포 일정은 다음 주 화요일로 확정합니다",
	"추가 논의가 필요한 항목은 이슈로 등록하겠습니다",
	"회의를 마치겠습니다 감사합니다",
}

// Adapter implements stt.Transcriber with canned responses.
type Adapter struct {
	mu         sync.Mutex
	utterances []string
	next       int
	delay      time.Duration
	calls      int
}

// New creates a mock provider cycling through DefaultUtterances.
func New() *Adapter {
	return NewWithUtterances(DefaultUtterances, 0)
}

// NewWithUtterances creates a mock provider with custom responses and an
// artificial per-call latency.
func NewWithUtterances(utterances []string, delay time.Duration) *Adapter {
	if len(utterances) == 0 {
		utterances = DefaultUtterances
	}
	return &Adapter{
		utterances: append([]string(nil), utterances...),
		delay:      delay,
	}
}

// Transcribe returns the next utterance. It honors ctx during the delay.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte, fileName string) (string, error) {
	if a.delay > 0 {
		timer := time.NewTimer(a.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	text := a.utterances[a.next%len(a.utterances)]
	a.next++
	a.calls++
	return text, nil
}

// Calls returns how many transcriptions were served.
func (a *Adapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}
