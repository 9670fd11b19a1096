package api

import (
	"net/http"

	"github.com/nirojbhetuwal/lostbuddy/internal/matching"
)

// MatchesHandler handles match confirmation and suggestion endpoints.
type MatchesHandler struct {
	Finder *matching.Finder
}

type confirmMatchRequest struct {
	LostItemID  string `json:"lost_item_id"`
	FoundItemID string `json:"found_item_id"`
}

// Confirm handles POST /api/matches/confirm.
func (h *MatchesHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req confirmMatchRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.LostItemID == "" || req.FoundItemID == "" {
		jsonError(w, http.StatusBadRequest, "lost_item_id and found_item_id required")
		return
	}

	lost, found, err := h.Finder.ConfirmMatch(r.Context(), claims.UserID, req.LostItemID, req.FoundItemID)
	if err != nil {
		writeError(w, err, "failed to confirm match")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"lost_item": lost, "found_item": found})
}

// Suggestions handles GET /api/matches/suggestions.
func (h *MatchesHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	suggestions, err := h.Finder.Suggestions(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err, "failed to compute suggestions")
		return
	}
	for i := range suggestions {
		suggestions[i].Item = public(suggestions[i].Item)
	}
	jsonResponse(w, http.StatusOK, suggestions)
}

// Stats handles GET /api/matches/stats.
func (h *MatchesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	stats, err := h.Finder.Statistics(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err, "failed to compute statistics")
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}
