package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"meeting-summary-service/internal/failure"
	"meeting-summary-service/internal/observability/logging"
	"meeting-summary-service/internal/service/pipeline"
)

type handlers struct {
	ctrl Controller
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type ingestRequest struct {
	Path string `json:"path"`
}

type seekRequest struct {
	Position *float64 `json:"position"`
}

func (h *handlers) session(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

// command runs a body-less controller operation and answers with the
// resulting snapshot.
func (h *handlers) command(fn func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
	}
}

func (h *handlers) ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "body must be {\"path\": \"<audio file>\"}"})
		return
	}
	// The pipeline runs on the controller; the request only starts it.
	if err := h.ctrl.Ingest(context.WithoutCancel(r.Context()), req.Path); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h.ctrl.Snapshot())
}

func (h *handlers) seek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Position == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "body must be {\"position\": <seconds>}"})
		return
	}
	if err := h.ctrl.Seek(r.Context(), *req.Position); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

func (h *handlers) privacy(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.OpenPrivacySettings(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, failure.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, pipeline.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrNoRecording):
		return http.StatusConflict
	case errors.Is(err, failure.ErrEmptyRecording):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	if kind := failure.KindOf(err); kind != failure.KindUnknown {
		resp.Kind = kind.String()
	}

	logger := logging.WithComponent("http")
	logger.Warn().
		Err(err).
		Str("path", r.URL.Path).
		Str("requestId", middleware.GetReqID(r.Context())).
		Int("status", code).
		Msg("Request failed")

	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
