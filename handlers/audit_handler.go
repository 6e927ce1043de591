package handlers

import (
	"net/http"
	"strconv"

	"github.com/playvora/arena-engine/services"
)

type AuditHandler struct {
	audit services.AuditRecorder
}

func NewAuditHandler(audit services.AuditRecorder) *AuditHandler {
	return &AuditHandler{audit: audit}
}

func (h *AuditHandler) ListTournamentAuditHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			badRequestResponse(w, r, err)
			return
		}
	}

	entries, err := h.audit.ListByTournament(r.Context(), tournamentID, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"audit_log": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
