// Package claims owns the claim lifecycle and the item status changes it
// drives. A claim starts pending and ends approved, rejected or cancelled;
// approving one claim marks the item claimed and rejects every other pending
// claim on it in a single step.
package claims

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nirojbhetuwal/lostbuddy/internal/metrics"
	"github.com/nirojbhetuwal/lostbuddy/internal/model"
	"github.com/nirojbhetuwal/lostbuddy/internal/notify"
)

// Repository is the persistence the Manager needs. Lookups of missing
// records return an error wrapping model.ErrNotFound; compare-and-set
// updates that lose a race return one wrapping model.ErrConflict.
type Repository interface {
	FindItem(ctx context.Context, id string) (*model.Item, error)
	FindUser(ctx context.Context, id string) (*model.User, error)
	FindClaim(ctx context.Context, id string) (*model.Claim, error)
	FindClaimByItemAndUser(ctx context.Context, itemID, userID string) (*model.Claim, error)
	// CreateClaim inserts c; a second claim for the same item and user
	// fails with model.ErrConflict.
	CreateClaim(ctx context.Context, c *model.Claim) error
	// TransitionClaim moves a claim out of from into to, storing reason
	// when rejecting.
	TransitionClaim(ctx context.Context, id, from, to, reason string) error
	// ApproveClaim applies the approval cascade atomically and returns the
	// sibling claims it rejected.
	ApproveClaim(ctx context.Context, a Approval) ([]*model.Claim, error)
	UpdateItemStatus(ctx context.Context, id, from, to string) error
}

// Approval describes one approval cascade.
type Approval struct {
	ClaimID    string
	ItemID     string
	ItemFrom   string
	ApprovedBy string
	ApprovedAt time.Time
}

// Authorizer decides whether a user may act on an item as its owner.
type Authorizer interface {
	IsOwnerOrAdmin(ctx context.Context, userID string, item *model.Item) (bool, error)
}

// ItemObserver is told after a transition changes an item's status.
type ItemObserver interface {
	ItemChanged(ctx context.Context)
}

// Manager runs claim transitions.
type Manager struct {
	repo     Repository
	auth     Authorizer
	sink     notify.Sink
	observer ItemObserver
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures optional Manager collaborators.
type Option func(*Manager)

// WithMetrics records claim transitions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(mg *Manager) { mg.metrics = m }
}

// WithItemObserver reports item status changes to o.
func WithItemObserver(o ItemObserver) Option {
	return func(mg *Manager) { mg.observer = o }
}

// WithLogger overrides slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(mg *Manager) { mg.logger = l }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(mg *Manager) { mg.now = now }
}

// NewManager creates a Manager. sink may be nil.
func NewManager(repo Repository, auth Authorizer, sink notify.Sink, opts ...Option) *Manager {
	m := &Manager{
		repo:   repo,
		auth:   auth,
		sink:   sink,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit files a pending claim by userID against a found item. contact
// overrides the claimant's account contact details when non-empty.
func (m *Manager) Submit(ctx context.Context, userID, itemID, message string, contact *model.ContactInfo) (c *model.Claim, err error) {
	defer func() { m.metrics.ClaimTransition("submit", err) }()

	item, err := m.repo.FindItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("finding item: %w", err)
	}
	if item.ReporterID == userID {
		return nil, fmt.Errorf("%w: you cannot claim your own item", model.ErrValidation)
	}
	if item.Type != model.ItemTypeFound {
		return nil, fmt.Errorf("%w: only found items can be claimed", model.ErrInvalidState)
	}
	if item.Status != model.ItemStatusOpen {
		return nil, fmt.Errorf("%w: item is %s and no longer accepts claims", model.ErrInvalidState, item.Status)
	}
	if err := model.ValidateClaimMessage(message); err != nil {
		return nil, err
	}

	existing, err := m.repo.FindClaimByItemAndUser(ctx, itemID, userID)
	switch {
	case err == nil && existing != nil:
		return nil, fmt.Errorf("%w: you have already submitted a claim for this item", model.ErrConflict)
	case err != nil && !errors.Is(err, model.ErrNotFound):
		return nil, fmt.Errorf("checking existing claim: %w", err)
	}

	user, err := m.repo.FindUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("finding claimant: %w", err)
	}

	now := m.now().UTC()
	c = &model.Claim{
		ID:          uuid.Must(uuid.NewV7()).String(),
		ItemID:      itemID,
		UserID:      userID,
		Message:     strings.TrimSpace(message),
		ContactInfo: mergeContact(contact, user.Contact()),
		Status:      model.ClaimStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.repo.CreateClaim(ctx, c); err != nil {
		return nil, fmt.Errorf("creating claim: %w", err)
	}

	m.notify(ctx, model.Notification{
		UserID:        item.ReporterID,
		Type:          model.NotificationNewClaim,
		Title:         "New Claim Received",
		Message:       fmt.Sprintf("%s has submitted a claim for your found item %q", user.Username, item.Title),
		RelatedItemID: item.ID,
		Metadata:      map[string]any{"claimId": c.ID, "claimantId": userID},
	})
	m.logger.Info("claim submitted", "claim", c.ID, "item", item.ID, "user", userID)
	return c, nil
}

func mergeContact(override, account *model.ContactInfo) *model.ContactInfo {
	out := *account
	if override != nil {
		if e := strings.TrimSpace(override.Email); e != "" {
			out.Email = e
		}
		if p := strings.TrimSpace(override.Phone); p != "" {
			out.Phone = p
		}
	}
	return &out
}

// Approve accepts a pending claim. The item becomes claimed and every other
// pending claim on it is rejected, all or nothing.
func (m *Manager) Approve(ctx context.Context, actorID, claimID string) (c *model.Claim, err error) {
	defer func() { m.metrics.ClaimTransition("approve", err) }()

	c, item, err := m.loadForOwner(ctx, actorID, claimID)
	if err != nil {
		return nil, err
	}
	if c.Terminal() {
		return nil, fmt.Errorf("%w: claim has already been %s", model.ErrInvalidState, c.Status)
	}
	if !model.CanTransitionItem(item.Status, model.ItemStatusClaimed) {
		return nil, fmt.Errorf("%w: item is %s and cannot be claimed", model.ErrInvalidState, item.Status)
	}

	at := m.now().UTC()
	rejected, err := m.repo.ApproveClaim(ctx, Approval{
		ClaimID:    c.ID,
		ItemID:     item.ID,
		ItemFrom:   item.Status,
		ApprovedBy: actorID,
		ApprovedAt: at,
	})
	if err != nil {
		return nil, fmt.Errorf("approving claim: %w", err)
	}

	m.itemChanged(ctx)

	c.Status = model.ClaimStatusApproved
	c.ApprovedBy = actorID
	c.ApprovedAt = &at
	c.UpdatedAt = at

	finder := item.ContactInfo
	if finder == nil || (finder.Email == "" && finder.Phone == "") {
		if reporter, err := m.repo.FindUser(ctx, item.ReporterID); err == nil {
			finder = reporter.Contact()
		} else {
			m.logger.Warn("looking up reporter contact", "item", item.ID, "error", err)
		}
	}
	m.notify(ctx, model.Notification{
		UserID:        c.UserID,
		Type:          model.NotificationClaimApproved,
		Title:         "Claim Approved!",
		Message:       fmt.Sprintf("Your claim for %q has been approved. Contact the finder to arrange pickup.", item.Title),
		RelatedItemID: item.ID,
		Metadata:      map[string]any{"claimId": c.ID, "finderContact": finder},
	})
	for _, s := range rejected {
		m.notify(ctx, rejectedNotification(s, item, model.ReasonSiblingApproved))
	}

	m.logger.Info("claim approved", "claim", c.ID, "item", item.ID, "by", actorID, "siblings_rejected", len(rejected))
	return c, nil
}

// Reject declines a pending claim. An empty reason selects the default.
func (m *Manager) Reject(ctx context.Context, actorID, claimID, reason string) (c *model.Claim, err error) {
	defer func() { m.metrics.ClaimTransition("reject", err) }()

	c, item, err := m.loadForOwner(ctx, actorID, claimID)
	if err != nil {
		return nil, err
	}
	if c.Terminal() {
		return nil, fmt.Errorf("%w: claim has already been %s", model.ErrInvalidState, c.Status)
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = model.ReasonDefaultReject
	}
	if err := m.repo.TransitionClaim(ctx, c.ID, model.ClaimStatusPending, model.ClaimStatusRejected, reason); err != nil {
		return nil, fmt.Errorf("rejecting claim: %w", err)
	}
	c.Status = model.ClaimStatusRejected
	c.RejectionReason = reason
	c.UpdatedAt = m.now().UTC()

	m.notify(ctx, rejectedNotification(c, item, reason))
	m.logger.Info("claim rejected", "claim", c.ID, "item", item.ID, "by", actorID)
	return c, nil
}

func rejectedNotification(c *model.Claim, item *model.Item, reason string) model.Notification {
	return model.Notification{
		UserID:        c.UserID,
		Type:          model.NotificationClaimRejected,
		Title:         "Claim Update",
		Message:       fmt.Sprintf("Your claim for %q was not approved. Reason: %s", item.Title, reason),
		RelatedItemID: item.ID,
		Metadata:      map[string]any{"claimId": c.ID, "reason": reason},
	}
}

// Cancel withdraws a pending claim. Only the claimant may cancel.
func (m *Manager) Cancel(ctx context.Context, actorID, claimID string) (c *model.Claim, err error) {
	defer func() { m.metrics.ClaimTransition("cancel", err) }()

	c, err = m.repo.FindClaim(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("finding claim: %w", err)
	}
	if c.UserID != actorID {
		return nil, fmt.Errorf("%w: only the claimant can cancel a claim", model.ErrUnauthorized)
	}
	if c.Terminal() {
		return nil, fmt.Errorf("%w: claim has already been %s", model.ErrInvalidState, c.Status)
	}

	if err := m.repo.TransitionClaim(ctx, c.ID, model.ClaimStatusPending, model.ClaimStatusCancelled, ""); err != nil {
		return nil, fmt.Errorf("cancelling claim: %w", err)
	}
	c.Status = model.ClaimStatusCancelled
	c.UpdatedAt = m.now().UTC()

	m.logger.Info("claim cancelled", "claim", c.ID, "item", c.ItemID)
	return c, nil
}

// UpdateItemStatus moves an item along the status table on behalf of its
// reporter or an admin. Claimed and matched are reachable only through
// Approve and match confirmation.
func (m *Manager) UpdateItemStatus(ctx context.Context, actorID, itemID, status string) (item *model.Item, err error) {
	defer func() { m.metrics.ClaimTransition("item_status", err) }()

	if !model.ValidItemStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrValidation, status)
	}

	item, err = m.repo.FindItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("finding item: %w", err)
	}
	if err := m.authorize(ctx, actorID, item); err != nil {
		return nil, err
	}

	switch {
	case status == model.ItemStatusClaimed:
		return nil, fmt.Errorf("%w: items become claimed by approving a claim", model.ErrInvalidState)
	case status == model.ItemStatusMatched:
		return nil, fmt.Errorf("%w: items become matched by confirming a match", model.ErrInvalidState)
	case !model.CanTransitionItem(item.Status, status):
		return nil, fmt.Errorf("%w: cannot move item from %s to %s", model.ErrInvalidState, item.Status, status)
	}

	from := item.Status
	if err := m.repo.UpdateItemStatus(ctx, item.ID, from, status); err != nil {
		return nil, fmt.Errorf("updating item status: %w", err)
	}
	m.itemChanged(ctx)

	item.Status = status
	item.UpdatedAt = m.now().UTC()
	if status == model.ItemStatusOpen {
		item.MatchedWith = ""
	}

	if actorID != item.ReporterID {
		m.notify(ctx, model.Notification{
			UserID:        item.ReporterID,
			Type:          model.NotificationItemStatusUpdate,
			Title:         "Item Status Updated",
			Message:       fmt.Sprintf("Your item %q was changed from %s to %s by an administrator", item.Title, from, status),
			RelatedItemID: item.ID,
			Metadata:      map[string]any{"from": from, "to": status},
		})
	}
	m.logger.Info("item status changed", "item", item.ID, "from", from, "to", status, "by", actorID)
	return item, nil
}

// loadForOwner loads a claim and its item and checks that actorID may decide
// on it.
func (m *Manager) loadForOwner(ctx context.Context, actorID, claimID string) (*model.Claim, *model.Item, error) {
	c, err := m.repo.FindClaim(ctx, claimID)
	if err != nil {
		return nil, nil, fmt.Errorf("finding claim: %w", err)
	}
	item, err := m.repo.FindItem(ctx, c.ItemID)
	if err != nil {
		return nil, nil, fmt.Errorf("finding item: %w", err)
	}
	if err := m.authorize(ctx, actorID, item); err != nil {
		return nil, nil, err
	}
	return c, item, nil
}

func (m *Manager) authorize(ctx context.Context, actorID string, item *model.Item) error {
	ok, err := m.auth.IsOwnerOrAdmin(ctx, actorID, item)
	if err != nil {
		return fmt.Errorf("checking authorization: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: only the item's reporter or an admin can do this", model.ErrUnauthorized)
	}
	return nil
}

func (m *Manager) itemChanged(ctx context.Context) {
	if m.observer != nil {
		m.observer.ItemChanged(ctx)
	}
}

func (m *Manager) notify(ctx context.Context, n model.Notification) {
	if m.sink == nil {
		return
	}
	notify.Stamp(&n, m.now())
	if err := m.sink.Notify(ctx, n); err != nil {
		m.metrics.NotificationFailed()
		m.logger.Error("sending notification", "user", n.UserID, "type", n.Type, "error", err)
	}
}
