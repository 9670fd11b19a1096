package api

import (
	"database/sql"
	"net/http"

	"github.com/nirojbhetuwal/lostbuddy/internal/model"
	"github.com/nirojbhetuwal/lostbuddy/internal/store"
)

// NotificationsHandler handles the caller's in-app notifications.
type NotificationsHandler struct {
	DB *sql.DB
}

type notificationsResponse struct {
	Notifications []model.Notification `json:"notifications"`
	Unread        int                  `json:"unread"`
}

// List handles GET /api/notifications?unread=true&limit=20.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	unreadOnly := r.URL.Query().Get("unread") == "true"

	list, err := store.ListNotifications(r.Context(), h.DB, claims.UserID, unreadOnly, min(queryInt(r, "limit", 50), 200))
	if err != nil {
		writeError(w, err, "failed to list notifications")
		return
	}
	if list == nil {
		list = []model.Notification{}
	}

	unread, err := store.CountUnreadNotifications(r.Context(), h.DB, claims.UserID)
	if err != nil {
		writeError(w, err, "failed to count notifications")
		return
	}
	jsonResponse(w, http.StatusOK, notificationsResponse{Notifications: list, Unread: unread})
}

// MarkRead handles POST /api/notifications/{id}/read.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if err := store.MarkNotificationRead(r.Context(), h.DB, r.PathValue("id"), claims.UserID); err != nil {
		writeError(w, err, "failed to mark notification read")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "notification marked read"})
}

// MarkAllRead handles POST /api/notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	n, err := store.MarkAllNotificationsRead(r.Context(), h.DB, claims.UserID)
	if err != nil {
		writeError(w, err, "failed to mark notifications read")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int64{"marked": n})
}
