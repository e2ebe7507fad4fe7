package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Handler serves the websocket upgrade and the read-only HTTP endpoints.
type Handler struct {
	manager *ConnectionManager
	state   StateProvider
}

func NewHandler(manager *ConnectionManager, state StateProvider) *Handler {
	return &Handler{manager: manager, state: state}
}

// HandleGameConnection upgrades a rendering client.
func (h *Handler) HandleGameConnection(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.UpgradeConnection(w, r); err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
	}
}

// HandleState serves the session snapshot for reconnecting clients.
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.state == nil {
		w.Write([]byte("{}"))
		return
	}
	if err := json.NewEncoder(w).Encode(h.state.GameState()); err != nil {
		log.Error().Err(err).Msg("failed to encode game state")
	}
}

// HandleStats reports connection statistics.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{
		"total_connections": h.manager.ConnectionCount(),
	})
}

// HandleHealth is the liveness endpoint.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// RegisterRoutes registers the gateway endpoints on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/game", h.HandleGameConnection)
	mux.HandleFunc("/state", h.HandleState)
	mux.HandleFunc("/stats", h.HandleStats)
	mux.HandleFunc("/healthz", h.HandleHealth)
}
