package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/nirojbhetuwal/lostbuddy/internal/claims"
	"github.com/nirojbhetuwal/lostbuddy/internal/imaging"
	"github.com/nirojbhetuwal/lostbuddy/internal/matching"
	"github.com/nirojbhetuwal/lostbuddy/internal/model"
	"github.com/nirojbhetuwal/lostbuddy/internal/store"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	DB     *sql.DB
	Finder *matching.Finder
	Claims *claims.Manager
	Photos *imaging.Processor
}

type createItemRequest struct {
	Type        string             `json:"type"`
	Category    string             `json:"category"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Location    string             `json:"location"`
	Date        string             `json:"date"`
	Features    *model.Features    `json:"features"`
	ContactInfo *model.ContactInfo `json:"contact_info"`
}

type createItemResponse struct {
	Item      *model.Item               `json:"item"`
	AutoMatch *matching.AutoMatchResult `json:"auto_match"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// public hides the reporter's contact details from listings.
func public(it *model.Item) *model.Item {
	cp := *it
	cp.ContactInfo = nil
	return &cp
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := store.ListItems(r.Context(), h.DB, store.ItemFilter{
		Type:     q.Get("type"),
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Limit:    min(queryInt(r, "limit", 50), 200),
		Offset:   queryInt(r, "offset", 0),
	})
	if err != nil {
		writeError(w, err, "failed to list items")
		return
	}

	out := make([]*model.Item, len(items))
	for i := range items {
		out[i] = public(&items[i])
	}
	jsonResponse(w, http.StatusOK, out)
}

// Create handles POST /api/items. The new item is auto-matched right away.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date, ok := parseDate(req.Date)
	if !ok {
		jsonError(w, http.StatusBadRequest, "date must be YYYY-MM-DD or RFC 3339")
		return
	}

	item := &model.Item{
		Type:        req.Type,
		Category:    req.Category,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Date:        date,
		Features:    req.Features,
		ContactInfo: req.ContactInfo,
		ReporterID:  claims.UserID,
	}
	if err := item.Validate(); err != nil {
		writeError(w, err, "failed to create item")
		return
	}

	created, err := store.CreateItem(r.Context(), h.DB, item)
	if err != nil {
		writeError(w, err, "failed to create item")
		return
	}
	slog.Info("item reported", "item", created.ID, "type", created.Type, "user", claims.Username)

	h.Finder.ItemChanged(r.Context())
	result, err := h.Finder.AutoMatch(r.Context(), created.ID)
	if err != nil {
		slog.Error("auto-match failed", "item", created.ID, "error", err)
		result = &matching.AutoMatchResult{}
	}
	if result.TopMatch != nil {
		top := *result.TopMatch
		top.Item = public(top.Item)
		result.TopMatch = &top
	}

	jsonResponse(w, http.StatusCreated, createItemResponse{Item: created, AutoMatch: result})
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := store.GetItem(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		writeError(w, err, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, public(item))
}

// UpdateStatus handles PUT /api/items/{id}/status.
func (h *ItemsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Claims.UpdateItemStatus(r.Context(), claims.UserID, r.PathValue("id"), req.Status)
	if err != nil {
		writeError(w, err, "failed to update item status")
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Matches handles GET /api/items/{id}/matches?threshold=0.5.
func (h *ItemsHandler) Matches(w http.ResponseWriter, r *http.Request) {
	threshold := h.Finder.Config().SuggestThreshold
	if v := r.URL.Query().Get("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid threshold")
			return
		}
		threshold = t
	}

	matches, err := h.Finder.FindMatches(r.Context(), r.PathValue("id"), threshold)
	if err != nil {
		writeError(w, err, "failed to find matches")
		return
	}
	if matches == nil {
		matches = []matching.Match{}
	}
	for i := range matches {
		matches[i].Item = public(matches[i].Item)
	}
	jsonResponse(w, http.StatusOK, matches)
}

// UploadImage handles PUT /api/items/{id}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, err, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	if item.ReporterID != claims.UserID && !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		jsonError(w, http.StatusForbidden, "only the item's reporter or an admin can do this")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := h.Photos.Process(file)
	if err != nil {
		writeError(w, err, "failed to process image")
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, id, photo.Data, photo.MIME); err != nil {
		writeError(w, err, "failed to save image")
		return
	}

	slog.Info("item image uploaded", "item", id, "user", claims.Username, "width", photo.Width, "height", photo.Height)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	data, mime, err := store.GetItemImage(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		writeError(w, err, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}
