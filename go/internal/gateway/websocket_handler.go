package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/treadpro/go/internal/playback"
)

// RunSource exposes the live run so a newly connected display can sync.
// *playback.Manager satisfies it.
type RunSource interface {
	Active() (*playback.Runner, bool)
}

// WebSocketHandler handles WebSocket upgrade requests from displays
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	runs              RunSource
}

func NewWebSocketHandler(cm *ConnectionManager, runs RunSource) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		runs:              runs,
	}
}

// HandleRunConnection attaches a display to one run (run_id query parameter)
// or, without run_id, to whichever run is live.
func (h *WebSocketHandler) HandleRunConnection(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID != "" {
		if _, err := uuid.Parse(runID); err != nil {
			http.Error(w, "invalid run_id format", http.StatusBadRequest)
			return
		}
	}

	if err := h.connectionManager.UpgradeConnection(w, r, runID, h.syncEvent(runID)); err != nil {
		// The upgrader has already replied to the client.
		log.Error().Err(err).Str("run_id", runID).Msg("failed to upgrade WebSocket connection")
		return
	}
}

// syncEvent describes the live run, if it is the one the display asked for.
func (h *WebSocketHandler) syncEvent(runID string) *DisplayEvent {
	event := &DisplayEvent{
		ID:        uuid.New().String(),
		RunID:     runID,
		Type:      EventTypeSync,
		Timestamp: time.Now().UTC(),
	}
	if h.runs == nil {
		return event
	}
	run, ok := h.runs.Active()
	if !ok || (runID != "" && run.ID() != runID) {
		return event
	}
	snap := run.Snapshot()
	event.RunID = run.ID()
	event.Snapshot = &snap
	return event
}

func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.GetConnectionStats()); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/run", h.HandleRunConnection)
	r.Get("/ws/stats", h.HandleConnectionStats)
}
