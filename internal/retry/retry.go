// Package retry runs an operation under an explicit attempt/backoff policy.
package retry

import (
	"context"
	"net/http"
	"time"

	"meeting-summary-service/internal/failure"
	"meeting-summary-service/internal/observability/logging"
	"meeting-summary-service/internal/observability/metrics"
)

// Policy configures retries. MaxAttempts <= 1 disables retrying.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Metrics receives a count per retry. Nil records nothing.
	Metrics *metrics.Metrics
}

// NoRetry performs exactly one attempt.
func NoRetry() Policy {
	return Policy{MaxAttempts: 1}
}

// Enabled reports whether more than one attempt is allowed.
func (p Policy) Enabled() bool {
	return p.MaxAttempts > 1
}

// Backoff returns the wait before the given retry (1-based), doubling from
// InitialBackoff and capped at MaxBackoff.
func (p Policy) Backoff(retry int) time.Duration {
	if p.InitialBackoff <= 0 || retry < 1 {
		return 0
	}
	d := p.InitialBackoff
	for i := 1; i < retry; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// Retryable reports whether err is transient: network failures, empty
// bodies and 5xx or 429 statuses.
func Retryable(err error) bool {
	switch failure.KindOf(err) {
	case failure.KindNetwork, failure.KindEmptyBody:
		return true
	case failure.KindBadStatus:
		code := failure.StatusCodeOf(err)
		return code >= 500 || code == http.StatusTooManyRequests
	}
	return false
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// are exhausted or ctx is done. The last error is returned unchanged.
func Do[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	logger := logging.WithComponent("retry")

	var (
		result T
		err    error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err = fn(ctx)
		if err == nil || attempt == attempts || !Retryable(err) {
			return result, err
		}

		wait := p.Backoff(attempt)
		if p.Metrics != nil {
			p.Metrics.RecordRetry(op)
		}
		logger.Warn().
			Err(err).
			Str("op", op).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying after transient failure")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, err
		case <-timer.C:
		}
	}
	return result, err
}
