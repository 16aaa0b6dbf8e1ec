package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/treadpro/go/internal/models"
	"github.com/mcdev12/treadpro/go/internal/playback"
)

// SessionSource is the read side of a session repository.
type SessionSource interface {
	ListSessions(ctx context.Context) ([]models.Session, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
}

// Runs is the run control surface. *playback.Manager satisfies it.
type Runs interface {
	StartRun(ctx context.Context, session *models.Session) (string, playback.Snapshot, error)
	Run(runID string) (*playback.Runner, error)
	Active() (*playback.Runner, bool)
	Pause(runID string) (playback.Snapshot, error)
	Resume(runID string) (playback.Snapshot, error)
	TogglePause(runID string) (playback.Snapshot, error)
	Skip(runID string) (playback.Snapshot, error)
	Cancel(runID string) (playback.Snapshot, error)
}

type Handler struct {
	sessions SessionSource
	runs     Runs
}

func NewHandler(sessions SessionSource, runs Runs) *Handler {
	return &Handler{sessions: sessions, runs: runs}
}

// RunResponse is returned by every endpoint that reports on a run.
type RunResponse struct {
	RunID    string            `json:"run_id"`
	Snapshot playback.Snapshot `json:"snapshot"`
}

type startRunRequest struct {
	SessionID string `json:"session_id"`
}

// NewRouter returns a chi router with the standard middleware and all routes
// registered. extra registers additional routes, such as the display gateway.
func NewRouter(h *Handler, extra ...func(chi.Router)) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	h.RegisterRoutes(r)
	for _, register := range extra {
		register(r)
	}
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.health)

	r.Get("/sessions", h.listSessions)
	r.Get("/sessions/{id}", h.getSession)

	r.Post("/runs", h.startRun)
	r.Get("/runs/active", h.activeRun)
	r.Get("/runs/{id}", h.getRun)
	r.Post("/runs/{id}/pause", h.control(Runs.Pause))
	r.Post("/runs/{id}/resume", h.control(Runs.Resume))
	r.Post("/runs/{id}/toggle", h.control(Runs.TogglePause))
	r.Post("/runs/{id}/skip", h.control(Runs.Skip))
	r.Post("/runs/{id}/cancel", h.control(Runs.Cancel))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		log.Error().Err(err).Msg("failed to write health check response")
	}
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	list, err := h.sessions.ListSessions(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	if list == nil {
		list = []models.Session{}
	}
	respondJSON(w, list, http.StatusOK)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, session, http.StatusOK)
}

func (h *Handler) startRun(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		respondError(w, "session_id is required", http.StatusBadRequest)
		return
	}

	session, err := h.sessions.GetSession(r.Context(), req.SessionID)
	if err != nil {
		respondErr(w, err)
		return
	}

	runID, snap, err := h.runs.StartRun(r.Context(), session)
	if err != nil {
		respondErr(w, err)
		return
	}

	log.Info().
		Str("run_id", runID).
		Str("session_id", session.ID).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("Run started over HTTP")
	respondJSON(w, RunResponse{RunID: runID, Snapshot: snap}, http.StatusCreated)
}

func (h *Handler) activeRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.runs.Active()
	if !ok {
		respondError(w, "no active run", http.StatusNotFound)
		return
	}
	respondJSON(w, RunResponse{RunID: run.ID(), Snapshot: run.Snapshot()}, http.StatusOK)
}

func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.Run(chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, RunResponse{RunID: run.ID(), Snapshot: run.Snapshot()}, http.StatusOK)
}

func (h *Handler) control(op func(Runs, string) (playback.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := chi.URLParam(r, "id")
		snap, err := op(h.runs, runID)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, RunResponse{RunID: runID, Snapshot: snap}, http.StatusOK)
	}
}
