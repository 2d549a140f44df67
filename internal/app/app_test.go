package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-summary-service/internal/config"
	"meeting-summary-service/internal/media"
	"meeting-summary-service/internal/observability/metrics"
	"meeting-summary-service/internal/retry"
	"meeting-summary-service/internal/service/audio"
	"meeting-summary-service/internal/service/session"
	"meeting-summary-service/internal/service/stt/mock"
)

func testConfig(t *testing.T, relayURL string) *config.Configuration {
	t.Helper()
	cfg := config.Defaults()
	cfg.Service.TempDir = t.TempDir()
	cfg.STT.Provider = "mock"
	cfg.Relay.Endpoint = relayURL
	cfg.Capture.FFprobe = filepath.Join(t.TempDir(), "no-ffprobe")
	cfg.Capture.FFplay = filepath.Join(t.TempDir(), "no-ffplay")
	cfg.Capture.AuthMode = "granted"
	return cfg
}

func TestNew_RequiresRelayEndpoint(t *testing.T) {
	cfg := testConfig(t, "")
	_, err := New(context.Background(), cfg, Options{LogOutput: io.Discard})
	require.Error(t, err)
}

func TestApplication_IngestEndToEnd(t *testing.T) {
	received := make(chan string, 1)
	relaySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Transcript string `json:"transcript"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		received <- body.Transcript
		_, _ = w.Write([]byte(`{"summaryUrl":"https://notes.example/s/42"}`))
	}))
	defer relaySrv.Close()

	cfg := testConfig(t, relaySrv.URL)
	a, err := New(context.Background(), cfg, Options{LogOutput: io.Discard})
	require.NoError(t, err)
	require.Error(t, a.Ready())

	require.NoError(t, a.Start(context.Background()))
	defer a.Shutdown()
	require.NoError(t, a.Ready())

	path := filepath.Join(t.TempDir(), "meeting.m4a")
	require.NoError(t, os.WriteFile(path, []byte("not really audio"), 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Controller.Ingest(ctx, path))
	snap, err := a.Controller.AwaitTerminal(ctx)
	require.NoError(t, err)

	assert.Equal(t, session.StatusComplete, snap.Status)
	assert.Equal(t, "https://notes.example/s/42", snap.ResultURL)
	assert.Equal(t, mock.DefaultUtterances[0], <-received)
	assert.False(t, snap.HasRecording, "playback is unavailable without ffprobe")
}

func TestNewTranscriber(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.STTConfig
		wantErr bool
	}{
		{"mock", config.STTConfig{Provider: "mock"}, false},
		{"whisper", config.STTConfig{Provider: "whisper", APIKey: "k"}, false},
		{"whisper without key", config.STTConfig{Provider: "whisper"}, true},
		{"openai", config.STTConfig{Provider: "openai", APIKey: "k"}, false},
		{"openai without key", config.STTConfig{Provider: "openai"}, true},
		{"unknown", config.STTConfig{Provider: "carrier-pigeon"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, closer, err := NewTranscriber(context.Background(), tt.cfg, media.DefaultTools(), retry.NoRetry(), metrics.DefaultMetrics)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, tr)
			assert.Nil(t, closer)
		})
	}
}

func TestNewAuthorizer(t *testing.T) {
	granted := newAuthorizer(config.CaptureConfig{AuthMode: "granted"})
	assert.Equal(t, audio.AuthAuthorized, granted.Status(context.Background()))

	file := newAuthorizer(config.CaptureConfig{AuthMode: "file", AuthStateFile: filepath.Join(t.TempDir(), "mic")})
	assert.Equal(t, audio.AuthNotDetermined, file.Status(context.Background()))
}
