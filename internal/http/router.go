package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"meeting-summary-service/internal/service/pipeline"
)

// Controller is the pipeline surface exposed over HTTP.
type Controller interface {
	Snapshot() pipeline.Snapshot
	Subscribe() (<-chan pipeline.Snapshot, func())
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Ingest(ctx context.Context, path string) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, t float64) error
	OpenPrivacySettings(ctx context.Context) error
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(ctrl Controller, hub *Hub, ready func() error) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if ready != nil {
			if err := ready(); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	h := &handlers{ctrl: ctrl}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/session", h.session)
		r.Get("/session/events", hub.ServeWS)

		r.Post("/recording/start", h.command(ctrl.Start))
		r.Post("/recording/stop", h.command(ctrl.Stop))
		r.Post("/ingest", h.ingest)

		r.Post("/playback/play", h.command(ctrl.Play))
		r.Post("/playback/pause", h.command(ctrl.Pause))
		r.Post("/playback/seek", h.seek)

		r.Post("/privacy-settings", h.privacy)
	})

	return r
}
