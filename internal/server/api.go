package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	progDb "github.com/codelafda/codelafda/internal/database/progression/database"
	"github.com/codelafda/codelafda/internal/database/progression/model"
	"github.com/codelafda/codelafda/internal/logging"
	"github.com/google/uuid"
)

// API exposes the progression store over HTTP. The presentation layer,
// not the room, reports match results here once a match produces a winner.
type API struct {
	progression *progDb.DB
}

func NewAPI(progression *progDb.DB) *API {
	return &API{progression: progression}
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/match-result", a.handleMatchResult)
	mux.HandleFunc("/api/profile", a.handleProfile)
	mux.HandleFunc("/api/leaderboard", a.handleLeaderboard)
}

func (a *API) handleMatchResult(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context()).Named("api.match-result")

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var result model.MatchResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if result.PlayerID == "" {
		http.Error(w, "playerId required", http.StatusBadRequest)
		return
	}

	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}

	xp, err := a.progression.Submit(result)
	if err != nil {
		logger.Errorf("submit match result: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, xp)
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context()).Named("api.profile")

	playerID := r.URL.Query().Get("player")
	if playerID == "" {
		http.Error(w, "player required", http.StatusBadRequest)
		return
	}

	stats, err := a.progression.FetchStats(playerID)
	if err != nil {
		logger.Errorf("fetch stats: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, stats)
}

func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context()).Named("api.leaderboard")

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := a.progression.Leaderboard(limit)
	if err != nil {
		logger.Errorf("leaderboard: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, entries)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
