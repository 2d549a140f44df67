package events

import (
	"context"
	"testing"

	"meeting-summary-service/internal/models"
)

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"empty brokers", &Config{Enabled: true, Brokers: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.enabled {
				t.Error("expected publisher to be disabled")
			}
			if p.writerStatus != nil || p.writerCompleted != nil {
				t.Error("expected nil writers when disabled")
			}
		})
	}
}

func TestNew_ConfigValues(t *testing.T) {
	p := New(&Config{
		Enabled:        false,
		Brokers:        []string{"localhost:9092"},
		TopicStatus:    "test.status",
		TopicCompleted: "test.completed",
		Principal:      "test-principal",
	})

	if p.principal != "test-principal" {
		t.Errorf("expected principal 'test-principal', got %s", p.principal)
	}
	if p.topicStatus != "test.status" {
		t.Errorf("expected topic status 'test.status', got %s", p.topicStatus)
	}
	if p.topicCompleted != "test.completed" {
		t.Errorf("expected topic completed 'test.completed', got %s", p.topicCompleted)
	}
}

func TestNew_EnabledCreatesWriters(t *testing.T) {
	p := New(&Config{
		Enabled:        true,
		Brokers:        []string{"localhost:9092"},
		TopicStatus:    "test.status",
		TopicCompleted: "test.completed",
	})
	defer p.Close()

	if !p.enabled {
		t.Fatal("expected publisher to be enabled")
	}
	if p.writerStatus.Topic != "test.status" || p.writerCompleted.Topic != "test.completed" {
		t.Errorf("unexpected writer topics %q %q", p.writerStatus.Topic, p.writerCompleted.Topic)
	}
}

func TestPublisher_PublishStatus_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false, TopicStatus: "test.status", Principal: "test-svc"})

	err := p.PublishStatus(context.Background(), models.SessionStatusEvent{
		EventType: models.EventSessionStatus,
		SessionID: "sess-1",
		Status:    "RECORDING",
	})
	if err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_PublishCompleted_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false, TopicCompleted: "test.completed"})

	err := p.Publish(context.Background(), models.SessionCompletedEvent{
		EventType: models.EventSessionCompleted,
		SessionID: "sess-1",
		ResultURL: "https://r/1",
	})
	if err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_Close_NoWriters(t *testing.T) {
	p := New(&Config{Enabled: false})

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}

func TestPublisher_Close_NilPublisher(t *testing.T) {
	p := &Publisher{}

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing publisher with nil writers, got %v", err)
	}
}
