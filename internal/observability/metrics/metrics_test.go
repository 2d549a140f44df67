package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// NewMetrics registers with the default registry, so tests share DefaultMetrics.
var m = DefaultMetrics

func TestRecordSessionLifecycle(t *testing.T) {
	startsBefore := testutil.ToFloat64(m.SessionsTotal.WithLabelValues("ingest"))
	completedBefore := testutil.ToFloat64(m.SessionsCompleted)
	failedBefore := testutil.ToFloat64(m.SessionsFailed.WithLabelValues("EmptyRecording"))
	activeBefore := testutil.ToFloat64(m.SessionsActive)

	m.RecordSessionStart("ingest")
	m.RecordSessionStart("ingest")
	if got := testutil.ToFloat64(m.SessionsActive) - activeBefore; got != 2 {
		t.Errorf("active delta = %v, want 2", got)
	}

	m.RecordSessionEnd("", 12)
	m.RecordSessionEnd("EmptyRecording", 1)

	if got := testutil.ToFloat64(m.SessionsTotal.WithLabelValues("ingest")) - startsBefore; got != 2 {
		t.Errorf("sessions_total delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SessionsCompleted) - completedBefore; got != 1 {
		t.Errorf("completed delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SessionsFailed.WithLabelValues("EmptyRecording")) - failedBefore; got != 1 {
		t.Errorf("failed delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SessionsActive); got != activeBefore {
		t.Errorf("active = %v, want %v", got, activeBefore)
	}
}

func TestRecordTranscriptionPath(t *testing.T) {
	single := testutil.ToFloat64(m.TranscriptionPath.WithLabelValues("single"))
	chunked := testutil.ToFloat64(m.TranscriptionPath.WithLabelValues("chunked"))

	m.RecordTranscriptionPath(false)
	m.RecordTranscriptionPath(true)
	m.RecordTranscriptionPath(true)

	if got := testutil.ToFloat64(m.TranscriptionPath.WithLabelValues("single")) - single; got != 1 {
		t.Errorf("single delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.TranscriptionPath.WithLabelValues("chunked")) - chunked; got != 2 {
		t.Errorf("chunked delta = %v, want 2", got)
	}
}

func TestRecordKafkaPublish_CountsErrors(t *testing.T) {
	const topic, eventType = "test.topic", "meeting.session.status"
	total := testutil.ToFloat64(m.KafkaPublishTotal.WithLabelValues(topic, eventType))
	errs := testutil.ToFloat64(m.KafkaPublishErrors.WithLabelValues(topic, eventType))

	m.RecordKafkaPublish(topic, eventType, nil, 0.01)
	m.RecordKafkaPublish(topic, eventType, errors.New("broker down"), 0.02)

	if got := testutil.ToFloat64(m.KafkaPublishTotal.WithLabelValues(topic, eventType)) - total; got != 2 {
		t.Errorf("publish total delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.KafkaPublishErrors.WithLabelValues(topic, eventType)) - errs; got != 1 {
		t.Errorf("publish errors delta = %v, want 1", got)
	}
}

func TestRecordRelay_OnlyCountsErrors(t *testing.T) {
	before := testutil.ToFloat64(m.RelayErrors.WithLabelValues("DecodeError"))

	m.RecordRelay("", 0.1)
	m.RecordRelay("DecodeError", 0.1)

	if got := testutil.ToFloat64(m.RelayErrors.WithLabelValues("DecodeError")) - before; got != 1 {
		t.Errorf("relay errors delta = %v, want 1", got)
	}
}
