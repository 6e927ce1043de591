package handlers

import (
	"errors"
	"net/http"

	"github.com/playvora/arena-engine/services"
)

type StatsHandler struct {
	statsService services.StatsService
}

func NewStatsHandler(statsService services.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

func (h *StatsHandler) TeamStatsHandler(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	game := r.URL.Query().Get("game")
	if game == "" {
		badRequestResponse(w, r, errors.New("missing required 'game' query parameter"))
		return
	}

	stats, err := h.statsService.GetTeamStats(r.Context(), teamID, game)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"stats": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *StatsHandler) PlayerStatsHandler(w http.ResponseWriter, r *http.Request) {
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	game := r.URL.Query().Get("game")
	if game == "" {
		badRequestResponse(w, r, errors.New("missing required 'game' query parameter"))
		return
	}

	stats, err := h.statsService.GetPlayerStats(r.Context(), playerID, game)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"stats": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
