package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nirojbhetuwal/lostbuddy/internal/claims"
	"github.com/nirojbhetuwal/lostbuddy/internal/model"
)

// Repository exposes the store to the matching and claims packages. Missing
// records become model.ErrNotFound. It is also the SQLite notification sink
// and the owner-or-admin authorizer.
type Repository struct {
	DB *sql.DB
}

// NewRepository wraps db.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

// FindItem returns the item or model.ErrNotFound.
func (r *Repository) FindItem(ctx context.Context, id string) (*model.Item, error) {
	it, err := GetItem(ctx, r.DB, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, fmt.Errorf("item %s: %w", id, model.ErrNotFound)
	}
	return it, nil
}

// FindUser returns the active user or model.ErrNotFound.
func (r *Repository) FindUser(ctx context.Context, id string) (*model.User, error) {
	u, err := GetUser(ctx, r.DB, id)
	if err != nil {
		return nil, err
	}
	if u == nil || u.DeletedAt != nil {
		return nil, fmt.Errorf("user %s: %w", id, model.ErrNotFound)
	}
	return u, nil
}

// FindClaim returns the claim or model.ErrNotFound.
func (r *Repository) FindClaim(ctx context.Context, id string) (*model.Claim, error) {
	c, err := GetClaim(ctx, r.DB, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("claim %s: %w", id, model.ErrNotFound)
	}
	return c, nil
}

// FindClaimByItemAndUser returns the user's claim on the item or
// model.ErrNotFound.
func (r *Repository) FindClaimByItemAndUser(ctx context.Context, itemID, userID string) (*model.Claim, error) {
	c, err := GetClaimByItemAndUser(ctx, r.DB, itemID, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("claim on %s by %s: %w", itemID, userID, model.ErrNotFound)
	}
	return c, nil
}

// FindCandidates implements matching.ItemRepository.
func (r *Repository) FindCandidates(ctx context.Context, itemType, status, category, excludeID string) ([]*model.Item, error) {
	items, err := FindCandidates(ctx, r.DB, itemType, status, category, excludeID)
	if err != nil {
		return nil, err
	}
	return pointers(items), nil
}

// ListItemsByReporter returns every item the user reported.
func (r *Repository) ListItemsByReporter(ctx context.Context, reporterID string) ([]*model.Item, error) {
	items, err := ListItems(ctx, r.DB, ItemFilter{ReporterID: reporterID})
	if err != nil {
		return nil, err
	}
	return pointers(items), nil
}

func pointers(items []model.Item) []*model.Item {
	out := make([]*model.Item, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out
}

// RaiseMatchScore implements matching.ItemRepository.
func (r *Repository) RaiseMatchScore(ctx context.Context, id string, score float64) error {
	return RaiseMatchScore(ctx, r.DB, id, score)
}

// LinkMatch implements matching.ItemRepository.
func (r *Repository) LinkMatch(ctx context.Context, lost, found *model.Item) error {
	return LinkMatch(ctx, r.DB, lost.ID, lost.Status, found.ID, found.Status)
}

// CreateClaim implements claims.Repository.
func (r *Repository) CreateClaim(ctx context.Context, c *model.Claim) error {
	return CreateClaim(ctx, r.DB, c)
}

// TransitionClaim implements claims.Repository.
func (r *Repository) TransitionClaim(ctx context.Context, id, from, to, reason string) error {
	return TransitionClaim(ctx, r.DB, id, from, to, reason)
}

// ApproveClaim implements claims.Repository.
func (r *Repository) ApproveClaim(ctx context.Context, a claims.Approval) ([]*model.Claim, error) {
	rejected, err := ApproveClaim(ctx, r.DB, a.ClaimID, a.ItemID, a.ItemFrom, a.ApprovedBy, a.ApprovedAt)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Claim, len(rejected))
	for i := range rejected {
		out[i] = &rejected[i]
	}
	return out, nil
}

// UpdateItemStatus implements claims.Repository.
func (r *Repository) UpdateItemStatus(ctx context.Context, id, from, to string) error {
	return UpdateItemStatus(ctx, r.DB, id, from, to)
}

// IsOwnerOrAdmin reports whether userID reported the item or is an active
// admin.
func (r *Repository) IsOwnerOrAdmin(ctx context.Context, userID string, item *model.Item) (bool, error) {
	if userID == "" {
		return false, nil
	}
	if item.ReporterID == userID {
		return true, nil
	}
	u, err := GetUser(ctx, r.DB, userID)
	if err != nil {
		return false, err
	}
	if u == nil || u.DeletedAt != nil {
		return false, nil
	}
	return model.RoleAtLeast(u.Role, model.RoleAdmin), nil
}

// Notify stores an in-app notification.
func (r *Repository) Notify(ctx context.Context, n model.Notification) error {
	return CreateNotification(ctx, r.DB, &n)
}
