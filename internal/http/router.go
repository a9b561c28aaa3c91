package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ai-teleprompter-service/internal/app"
	"ai-teleprompter-service/internal/observability/logging"
	"ai-teleprompter-service/internal/prompter/script"
	"ai-teleprompter-service/internal/service/session"
)

// Session is the part of *session.Session the router drives.
type Session interface {
	Running() bool
	Snapshot() session.Snapshot
	Script() *script.Script
	Skip(ctx context.Context, delta int) (session.Snapshot, error)
	Forward(ctx context.Context) (session.Snapshot, error)
	Rewind(ctx context.Context) (session.Snapshot, error)
	Reset(ctx context.Context) (session.Snapshot, error)
	Pause(ctx context.Context) (session.Snapshot, error)
	Resume(ctx context.Context) (session.Snapshot, error)
	TogglePause(ctx context.Context) (session.Snapshot, error)
}

// ScriptResponse is the body of GET /v1/script.
type ScriptResponse struct {
	Words                   []string `json:"words"`
	WordCount               int      `json:"wordCount"`
	EstimatedReadingSeconds int      `json:"estimatedReadingSeconds"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter constructs the HTTP router for the service. ws serves the
// renderer stream on /v1/ws and may be nil.
func NewRouter(application *app.Application, sess Session, ws http.Handler) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if !sess.Running() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	h := &handlers{sess: sess}

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Get("/script", h.script)
		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.snapshot)
			r.Post("/skip", h.skip)
			r.Post("/forward", h.control(sess.Forward))
			r.Post("/rewind", h.control(sess.Rewind))
			r.Post("/reset", h.control(sess.Reset))
			r.Post("/pause", h.control(sess.Pause))
			r.Post("/resume", h.control(sess.Resume))
			r.Post("/toggle-pause", h.control(sess.TogglePause))
		})
		if ws != nil {
			r.Handle("/ws", ws)
		}
	})

	if application != nil {
		application.Logger.Info().Msg("HTTP routes registered")
	}
	return r
}

type handlers struct {
	sess Session
}

func (h *handlers) snapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sess.Snapshot())
}

func (h *handlers) script(w http.ResponseWriter, _ *http.Request) {
	sc := h.sess.Script()
	info := sc.Info()
	writeJSON(w, http.StatusOK, ScriptResponse{
		Words:                   sc.Words(),
		WordCount:               info.WordCount,
		EstimatedReadingSeconds: int(info.EstimatedReadingTime.Seconds()),
	})
}

func (h *handlers) skip(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("words")
	if raw == "" {
		h.control(h.sess.Forward)(w, r)
		return
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "words must be an integer"})
		return
	}
	snap, err := h.sess.Skip(r.Context(), n)
	respond(w, r, snap, err)
}

func (h *handlers) control(fn func(context.Context) (session.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := fn(r.Context())
		respond(w, r, snap, err)
	}
}

func respond(w http.ResponseWriter, r *http.Request, snap session.Snapshot, err error) {
	switch {
	case err == nil:
		logger := logging.WithSession(snap.SessionID)
		logger.Info().
			Str("path", r.URL.Path).
			Int("cursor", snap.Cursor).
			Bool("paused", snap.Paused).
			Msg("Manual navigation")
		writeJSON(w, http.StatusOK, snap)
	case errors.Is(err, session.ErrInvalidSkip):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, session.ErrSessionClosed):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		logger := logging.WithComponent("http")
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("Session control failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
