package api

import (
	"database/sql"
	"net/http"

	"github.com/nirojbhetuwal/lostbuddy/internal/claims"
	"github.com/nirojbhetuwal/lostbuddy/internal/model"
	"github.com/nirojbhetuwal/lostbuddy/internal/store"
)

// ClaimsHandler handles claim endpoints.
type ClaimsHandler struct {
	DB     *sql.DB
	Claims *claims.Manager
}

type submitClaimRequest struct {
	Message     string             `json:"message"`
	ContactInfo *model.ContactInfo `json:"contact_info"`
}

type rejectClaimRequest struct {
	Reason string `json:"reason"`
}

func (h *ClaimsHandler) list(w http.ResponseWriter, r *http.Request, f store.ClaimFilter) {
	list, err := store.ListClaims(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, err, "failed to list claims")
		return
	}
	if list == nil {
		list = []model.Claim{}
	}
	jsonResponse(w, http.StatusOK, list)
}

// Submit handles POST /api/items/{id}/claims.
func (h *ClaimsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user := GetClaims(r.Context())

	var req submitClaimRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.Claims.Submit(r.Context(), user.UserID, r.PathValue("id"), req.Message, req.ContactInfo)
	if err != nil {
		writeError(w, err, "failed to submit claim")
		return
	}
	jsonResponse(w, http.StatusCreated, c)
}

// ListForItem handles GET /api/items/{id}/claims. Only the item's reporter
// or an admin may see them.
func (h *ClaimsHandler) ListForItem(w http.ResponseWriter, r *http.Request) {
	user := GetClaims(r.Context())
	itemID := r.PathValue("id")

	item, err := store.GetItem(r.Context(), h.DB, itemID)
	if err != nil {
		writeError(w, err, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	if item.ReporterID != user.UserID && !model.RoleAtLeast(user.Role, model.RoleAdmin) {
		jsonError(w, http.StatusForbidden, "only the item's reporter or an admin can do this")
		return
	}

	h.list(w, r, store.ClaimFilter{ItemID: itemID, Status: r.URL.Query().Get("status")})
}

// Mine handles GET /api/claims/mine.
func (h *ClaimsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	user := GetClaims(r.Context())
	h.list(w, r, store.ClaimFilter{UserID: user.UserID, Status: r.URL.Query().Get("status")})
}

// Received handles GET /api/claims/received: claims on items the caller reported.
func (h *ClaimsHandler) Received(w http.ResponseWriter, r *http.Request) {
	user := GetClaims(r.Context())
	h.list(w, r, store.ClaimFilter{ReporterID: user.UserID, Status: r.URL.Query().Get("status")})
}

// Approve handles POST /api/claims/{id}/approve.
func (h *ClaimsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	user := GetClaims(r.Context())
	c, err := h.Claims.Approve(r.Context(), user.UserID, r.PathValue("id"))
	if err != nil {
		writeError(w, err, "failed to approve claim")
		return
	}
	jsonResponse(w, http.StatusOK, c)
}

// Reject handles POST /api/claims/{id}/reject.
func (h *ClaimsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	user := GetClaims(r.Context())

	var req rejectClaimRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	c, err := h.Claims.Reject(r.Context(), user.UserID, r.PathValue("id"), req.Reason)
	if err != nil {
		writeError(w, err, "failed to reject claim")
		return
	}
	jsonResponse(w, http.StatusOK, c)
}

// Cancel handles POST /api/claims/{id}/cancel.
func (h *ClaimsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	user := GetClaims(r.Context())
	c, err := h.Claims.Cancel(r.Context(), user.UserID, r.PathValue("id"))
	if err != nil {
		writeError(w, err, "failed to cancel claim")
		return
	}
	jsonResponse(w, http.StatusOK, c)
}
