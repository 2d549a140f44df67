package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"meeting-summary-service/internal/models"
	"meeting-summary-service/internal/observability/metrics"
)

const defaultOutboxSize = 256

// Sink receives published events. *Publisher satisfies it.
type Sink interface {
	Publish(ctx context.Context, event models.Event) error
}

// Validator rejects malformed events before they are queued.
type Validator interface {
	Validate(event models.Event) error
}

// Outbox decouples event producers from Kafka. Emit never blocks: when the
// queue is full the event is dropped and counted.
type Outbox struct {
	sink      Sink
	validator Validator
	metrics   *metrics.Metrics
	timeout   time.Duration

	queue     chan models.Event
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewOutbox creates an outbox in front of sink. A nil validator accepts all events.
func NewOutbox(sink Sink, validator Validator, size int) *Outbox {
	if size <= 0 {
		size = defaultOutboxSize
	}
	return &Outbox{
		sink:      sink,
		validator: validator,
		metrics:   metrics.DefaultMetrics,
		timeout:   10 * time.Second,
		queue:     make(chan models.Event, size),
		done:      make(chan struct{}),
	}
}

// Emit validates and enqueues an event.
func (o *Outbox) Emit(event models.Event) {
	if o.validator != nil {
		if err := o.validator.Validate(event); err != nil {
			log.Warn().Err(err).Str("eventType", event.Type()).Str("key", event.Key()).Msg("Dropping invalid event")
			return
		}
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return
	}

	select {
	case o.queue <- event:
	default:
		o.metrics.RecordOutboxDropped()
		log.Warn().Str("eventType", event.Type()).Str("key", event.Key()).Msg("Outbox full, dropping event")
	}
}

// Run publishes queued events until Close is called and the queue is drained,
// or until ctx is cancelled.
func (o *Outbox) Run(ctx context.Context) {
	defer close(o.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-o.queue:
			if !ok {
				return
			}
			o.deliver(ctx, ev)
		}
	}
}

func (o *Outbox) deliver(ctx context.Context, ev models.Event) {
	pctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	if err := o.sink.Publish(pctx, ev); err != nil {
		log.Error().Err(err).Str("eventType", ev.Type()).Str("key", ev.Key()).Msg("Failed to publish event")
	}
}

// Close stops accepting events and waits for Run to drain the queue.
// It must only be called once Run has been started.
func (o *Outbox) Close() {
	o.closeOnce.Do(func() {
		o.mu.Lock()
		o.closed = true
		close(o.queue)
		o.mu.Unlock()
	})
	<-o.done
}
