package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nirojbhetuwal/lostbuddy/internal/model"
)

const claimColumns = `c.id, c.item_id, c.user_id, c.message, c.contact_email, c.contact_phone,
	c.status, c.approved_by, c.approved_at, c.rejection_reason, c.created_at, c.updated_at,
	i.title AS item_title, u.username`

const claimFrom = ` FROM claims c
	JOIN items i ON i.id = c.item_id
	JOIN users u ON u.id = c.user_id`

// CreateClaim inserts a pending claim. A second claim by the same user on
// the same item fails with model.ErrConflict.
func CreateClaim(ctx context.Context, db *sql.DB, c *model.Claim) error {
	contact := c.ContactInfo
	if contact == nil {
		contact = &model.ContactInfo{}
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO claims (id, item_id, user_id, message, contact_email, contact_phone, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ItemID, c.UserID, c.Message, nullString(contact.Email), nullString(contact.Phone),
		model.ClaimStatusPending, c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("creating claim: already claimed by this user: %w", model.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("creating claim: %w", err)
	}
	return nil
}

func scanClaim(s scanner) (*model.Claim, error) {
	c := &model.Claim{}
	var email, phone, approvedBy, reason sql.NullString
	err := s.Scan(&c.ID, &c.ItemID, &c.UserID, &c.Message, &email, &phone,
		&c.Status, &approvedBy, &c.ApprovedAt, &reason, &c.CreatedAt, &c.UpdatedAt,
		&c.ItemTitle, &c.Username)
	if err != nil {
		return nil, err
	}
	if email.Valid || phone.Valid {
		c.ContactInfo = &model.ContactInfo{Email: email.String, Phone: phone.String}
	}
	c.ApprovedBy = approvedBy.String
	c.RejectionReason = reason.String
	return c, nil
}

// GetClaim returns a claim by ID.
func GetClaim(ctx context.Context, db *sql.DB, id string) (*model.Claim, error) {
	c, err := scanClaim(db.QueryRowContext(ctx,
		`SELECT `+claimColumns+claimFrom+` WHERE c.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting claim: %w", err)
	}
	return c, nil
}

// GetClaimByItemAndUser returns the user's claim on an item, if any.
func GetClaimByItemAndUser(ctx context.Context, db *sql.DB, itemID, userID string) (*model.Claim, error) {
	c, err := scanClaim(db.QueryRowContext(ctx,
		`SELECT `+claimColumns+claimFrom+` WHERE c.item_id = ? AND c.user_id = ?`, itemID, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting claim by item and user: %w", err)
	}
	return c, nil
}

// ClaimFilter narrows ListClaims. Empty fields match everything.
type ClaimFilter struct {
	ItemID string
	UserID string
	// ReporterID selects claims on items reported by this user.
	ReporterID string
	Status     string
}

// ListClaims returns claims matching f, oldest first.
func ListClaims(ctx context.Context, db *sql.DB, f ClaimFilter) ([]model.Claim, error) {
	query := `SELECT ` + claimColumns + claimFrom + ` WHERE 1=1`
	var args []any

	if f.ItemID != "" {
		query += ` AND c.item_id = ?`
		args = append(args, f.ItemID)
	}
	if f.UserID != "" {
		query += ` AND c.user_id = ?`
		args = append(args, f.UserID)
	}
	if f.ReporterID != "" {
		query += ` AND i.reporter_id = ?`
		args = append(args, f.ReporterID)
	}
	if f.Status != "" {
		query += ` AND c.status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY c.created_at, c.id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing claims: %w", err)
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning claim: %w", err)
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}

// TransitionClaim moves a claim from one status to another. reason is
// stored only when rejecting. It fails with model.ErrConflict if the claim
// is no longer in status from.
func TransitionClaim(ctx context.Context, db *sql.DB, id, from, to, reason string) error {
	var rejection sql.NullString
	if to == model.ClaimStatusRejected {
		rejection = nullString(reason)
	}
	res, err := db.ExecContext(ctx,
		`UPDATE claims SET status = ?, rejection_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		to, rejection, time.Now().UTC(), id, from,
	)
	if err != nil {
		return fmt.Errorf("updating claim status: %w", err)
	}
	return expectOne(res, "claim %s is no longer %s", id, from)
}

// ApproveClaim approves a pending claim, marks its item claimed and rejects
// the item's other pending claims, in a single transaction. Both the claim
// and the item must still be in the statuses the caller observed, otherwise
// nothing is applied and the error wraps model.ErrConflict. It returns the
// claims it rejected.
func ApproveClaim(ctx context.Context, db *sql.DB, claimID, itemID, itemFrom, approvedBy string, at time.Time) ([]model.Claim, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	at = at.UTC()

	res, err := tx.ExecContext(ctx,
		`UPDATE claims SET status = 'approved', approved_by = ?, approved_at = ?, updated_at = ?
		 WHERE id = ? AND item_id = ? AND status = 'pending'`,
		approvedBy, at, at, claimID, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("approving claim: %w", err)
	}
	if err := expectOne(res, "claim %s is no longer pending", claimID); err != nil {
		return nil, err
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE items SET status = 'claimed', updated_at = ? WHERE id = ? AND status = ?`,
		at, itemID, itemFrom,
	)
	if err != nil {
		return nil, fmt.Errorf("marking item claimed: %w", err)
	}
	if err := expectOne(res, "item %s is no longer %s", itemID, itemFrom); err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT c.id, c.user_id FROM claims c
		 WHERE c.item_id = ? AND c.status = 'pending' AND c.id != ?
		 ORDER BY c.created_at, c.id`,
		itemID, claimID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sibling claims: %w", err)
	}
	var rejected []model.Claim
	for rows.Next() {
		c := model.Claim{
			ItemID:          itemID,
			Status:          model.ClaimStatusRejected,
			RejectionReason: model.ReasonSiblingApproved,
			UpdatedAt:       at,
		}
		if err := rows.Scan(&c.ID, &c.UserID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning sibling claim: %w", err)
		}
		rejected = append(rejected, c)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("listing sibling claims: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sibling claims: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE claims SET status = 'rejected', rejection_reason = ?, updated_at = ?
		 WHERE item_id = ? AND status = 'pending' AND id != ?`,
		model.ReasonSiblingApproved, at, itemID, claimID,
	)
	if err != nil {
		return nil, fmt.Errorf("rejecting sibling claims: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing approval: %w", err)
	}
	return rejected, nil
}
