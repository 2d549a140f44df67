package whisper

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-summary-service/internal/failure"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.Endpoint = srv.URL
	cfg.APIKey = "secret"
	return New(cfg)
}

func TestTranscribe_SendsMultipartForm(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "ko", r.FormValue("language"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "meeting-1.m4a", header.Filename)
		assert.Equal(t, "audio/m4a", header.Header.Get("Content-Type"))

		data, _ := io.ReadAll(file)
		assert.Equal(t, "AUDIO", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":" 안녕하세요 "}`))
	})

	text, err := client.Transcribe(context.Background(), []byte("AUDIO"), "meeting-1.m4a")
	require.NoError(t, err)
	assert.Equal(t, "안녕하세요", text)
}

func TestTranscribe_FailureTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind failure.Kind
	}{
		{"bad status", http.StatusBadGateway, `{"error":"upstream"}`, failure.KindBadStatus},
		{"unauthorized", http.StatusUnauthorized, "", failure.KindBadStatus},
		{"empty body", http.StatusOK, "", failure.KindEmptyBody},
		{"whitespace body", http.StatusOK, "  \n", failure.KindEmptyBody},
		{"not json", http.StatusOK, "plain text", failure.KindDecode},
		{"missing text field", http.StatusOK, `{"result":"x"}`, failure.KindDecode},
		{"wrong type", http.StatusOK, `{"text":42}`, failure.KindDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Transcribe(context.Background(), []byte("AUDIO"), "a.m4a")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, failure.KindOf(err))
			if tt.wantKind == failure.KindBadStatus {
				assert.Equal(t, tt.status, failure.StatusCodeOf(err))
			}
		})
	}
}

func TestTranscribe_EmptyTextIsValid(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":""}`))
	})

	text, err := client.Transcribe(context.Background(), []byte("AUDIO"), "a.m4a")
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestTranscribe_TimeoutIsNetworkError(t *testing.T) {
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-done:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(done)
		srv.Close()
	})

	cfg := DefaultConfig()
	cfg.Endpoint = srv.URL
	cfg.Timeout = 50 * time.Millisecond
	client := New(cfg)

	_, err := client.Transcribe(context.Background(), []byte("AUDIO"), "a.m4a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, failure.ErrNetwork))

	var ferr *failure.Error
	require.True(t, errors.As(err, &ferr))
	assert.NotEmpty(t, ferr.Domain)
}

func TestTranscribe_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	cfg := DefaultConfig()
	cfg.Endpoint = endpoint
	client := New(cfg)

	_, err := client.Transcribe(context.Background(), []byte("AUDIO"), "a.m4a")
	require.Error(t, err)
	assert.Equal(t, failure.KindNetwork, failure.KindOf(err))
}
