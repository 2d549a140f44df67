// Package events provides event publishing functionality.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"meeting-summary-service/internal/models"
	"meeting-summary-service/internal/observability/metrics"
)

// Publisher publishes session events to separate Kafka topics.
type Publisher struct {
	writerStatus    *kafka.Writer
	writerCompleted *kafka.Writer
	principal       string
	topicStatus     string
	topicCompleted  string
	enabled         bool
	metrics         *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers        []string
	TopicStatus    string
	TopicCompleted string
	Principal      string
	Enabled        bool
}

// New creates a Kafka event publisher with one writer per topic.
// A nil or disabled config yields a log-only publisher.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{metrics: m}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:      cfg.Principal,
			topicStatus:    cfg.TopicStatus,
			topicCompleted: cfg.TopicCompleted,
			metrics:        m,
		}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicStatus", cfg.TopicStatus).
		Str("topicCompleted", cfg.TopicCompleted).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerStatus:    newWriter(cfg.Brokers, cfg.TopicStatus, transport),
		writerCompleted: newWriter(cfg.Brokers, cfg.TopicCompleted, transport),
		principal:       cfg.Principal,
		topicStatus:     cfg.TopicStatus,
		topicCompleted:  cfg.TopicCompleted,
		enabled:         true,
		metrics:         m,
	}
}

func newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
}

// PublishStatus publishes a session status event, keyed by session so that
// one session's transitions stay ordered within a partition.
func (p *Publisher) PublishStatus(ctx context.Context, event models.SessionStatusEvent) error {
	return p.publish(ctx, p.writerStatus, p.topicStatus, event)
}

// PublishCompleted publishes a session completed event.
func (p *Publisher) PublishCompleted(ctx context.Context, event models.SessionCompletedEvent) error {
	return p.publish(ctx, p.writerCompleted, p.topicCompleted, event)
}

// Publish routes an event to its topic by type.
func (p *Publisher) Publish(ctx context.Context, event models.Event) error {
	switch ev := event.(type) {
	case models.SessionStatusEvent:
		return p.PublishStatus(ctx, ev)
	case models.SessionCompletedEvent:
		return p.PublishCompleted(ctx, ev)
	default:
		return p.publish(ctx, nil, event.Type(), event)
	}
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic string, event models.Event) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", event.Key()).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, event.Type(), nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(event.Key()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(event.Type())},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", event.Key()).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, event.Type(), err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, event.Type(), nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerStatus != nil {
		if e := p.writerStatus.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing status writer")
			err = e
		}
	}
	if p.writerCompleted != nil {
		if e := p.writerCompleted.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing completed writer")
			err = e
		}
	}
	return err
}
