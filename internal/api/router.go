// Package api exposes LostBuddy over HTTP as JSON.
package api

import (
	"database/sql"
	"net/http"

	"github.com/nirojbhetuwal/lostbuddy/internal/auth"
	"github.com/nirojbhetuwal/lostbuddy/internal/claims"
	"github.com/nirojbhetuwal/lostbuddy/internal/imaging"
	"github.com/nirojbhetuwal/lostbuddy/internal/matching"
	"github.com/nirojbhetuwal/lostbuddy/internal/metrics"
	"github.com/nirojbhetuwal/lostbuddy/internal/model"
)

// Deps are the services the router dispatches to.
type Deps struct {
	DB      *sql.DB
	Issuer  *auth.Issuer
	Finder  *matching.Finder
	Claims  *claims.Manager
	Photos  *imaging.Processor
	Metrics *metrics.Metrics
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: d.DB, Issuer: d.Issuer}
	usersHandler := &UsersHandler{DB: d.DB}
	itemsHandler := &ItemsHandler{DB: d.DB, Finder: d.Finder, Claims: d.Claims, Photos: d.Photos}
	matchesHandler := &MatchesHandler{Finder: d.Finder}
	claimsHandler := &ClaimsHandler{DB: d.DB, Claims: d.Claims}
	notificationsHandler := &NotificationsHandler{DB: d.DB}

	authMW := AuthMiddleware(d.Issuer, d.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }

	// Public.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)
	mux.HandleFunc("GET /api/items/{id}/image", itemsHandler.GetImage)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.DB.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", d.Metrics.Handler())

	// Session.
	mux.Handle("GET /api/auth/me", authed(authHandler.Me))
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))

	// Items.
	mux.Handle("POST /api/items", authed(itemsHandler.Create))
	mux.Handle("PUT /api/items/{id}/status", authed(itemsHandler.UpdateStatus))
	mux.Handle("PUT /api/items/{id}/image", authed(itemsHandler.UploadImage))
	mux.Handle("GET /api/items/{id}/matches", authed(itemsHandler.Matches))

	// Matches.
	mux.Handle("POST /api/matches/confirm", authed(matchesHandler.Confirm))
	mux.Handle("GET /api/matches/suggestions", authed(matchesHandler.Suggestions))
	mux.Handle("GET /api/matches/stats", authed(matchesHandler.Stats))

	// Claims.
	mux.Handle("POST /api/items/{id}/claims", authed(claimsHandler.Submit))
	mux.Handle("GET /api/items/{id}/claims", authed(claimsHandler.ListForItem))
	mux.Handle("GET /api/claims/mine", authed(claimsHandler.Mine))
	mux.Handle("GET /api/claims/received", authed(claimsHandler.Received))
	mux.Handle("POST /api/claims/{id}/approve", authed(claimsHandler.Approve))
	mux.Handle("POST /api/claims/{id}/reject", authed(claimsHandler.Reject))
	mux.Handle("POST /api/claims/{id}/cancel", authed(claimsHandler.Cancel))

	// Notifications.
	mux.Handle("GET /api/notifications", authed(notificationsHandler.List))
	mux.Handle("POST /api/notifications/{id}/read", authed(notificationsHandler.MarkRead))
	mux.Handle("POST /api/notifications/read-all", authed(notificationsHandler.MarkAllRead))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	return mux
}
