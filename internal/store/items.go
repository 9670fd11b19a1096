package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nirojbhetuwal/lostbuddy/internal/model"
)

const itemColumns = `id, type, category, title, description, location, date,
	color, brand, model, size, contact_email, contact_phone,
	status, match_score, matched_with, reporter_id, image_mime, created_at, updated_at`

// CreateItem stores a new open item reported by item.ReporterID. ID, status,
// score and timestamps are assigned here.
func CreateItem(ctx context.Context, db *sql.DB, item *model.Item) (*model.Item, error) {
	id := uuid.Must(uuid.NewV7()).String()
	now := time.Now().UTC()

	f := item.Features
	if f == nil {
		f = &model.Features{}
	}
	c := item.ContactInfo
	if c == nil {
		c = &model.ContactInfo{}
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO items (id, type, category, title, description, location, date,
		                    color, brand, model, size, contact_email, contact_phone,
		                    status, reporter_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, item.Type, item.Category, item.Title, item.Description, item.Location, item.Date.UTC(),
		nullString(f.Color), nullString(f.Brand), nullString(f.Model), nullString(f.Size),
		nullString(c.Email), nullString(c.Phone),
		model.ItemStatusOpen, item.ReporterID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, id)
}

func scanItem(s scanner) (*model.Item, error) {
	it := &model.Item{}
	var color, brand, mdl, size, email, phone, matchedWith, imageMime sql.NullString
	err := s.Scan(&it.ID, &it.Type, &it.Category, &it.Title, &it.Description, &it.Location, &it.Date,
		&color, &brand, &mdl, &size, &email, &phone,
		&it.Status, &it.MatchScore, &matchedWith, &it.ReporterID, &imageMime, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}

	f := &model.Features{Color: color.String, Brand: brand.String, Model: mdl.String, Size: size.String}
	if !f.Empty() {
		it.Features = f
	}
	if email.Valid || phone.Valid {
		it.ContactInfo = &model.ContactInfo{Email: email.String, Phone: phone.String}
	}
	it.MatchedWith = matchedWith.String
	it.ImageMime = imageMime.String
	return it, nil
}

func scanItems(rows *sql.Rows) ([]model.Item, error) {
	var items []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db *sql.DB, id string) (*model.Item, error) {
	it, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return it, nil
}

// ItemFilter narrows ListItems. Empty fields match everything.
type ItemFilter struct {
	Type       string
	Status     string
	Category   string
	ReporterID string
	// Search matches title, description or location case-insensitively.
	Search string
	Limit  int
	Offset int
}

// ListItems returns items matching f, newest first.
func ListItems(ctx context.Context, db *sql.DB, f ItemFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	var args []any

	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, f.Type)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.ReporterID != "" {
		query += ` AND reporter_id = ?`
		args = append(args, f.ReporterID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query += ` AND (lower(title) LIKE ? OR lower(description) LIKE ? OR lower(location) LIKE ?)`
		args = append(args, like, like, like)
	}

	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// FindCandidates returns the items a match run compares against, oldest
// first so that ranking ties keep report order.
func FindCandidates(ctx context.Context, db *sql.DB, itemType, status, category, excludeID string) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE type = ? AND status = ? AND category = ? AND id != ?
		 ORDER BY created_at, id`,
		itemType, status, category, excludeID,
	)
	if err != nil {
		return nil, fmt.Errorf("finding candidates: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// UpdateItemStatus moves an item from one status to another. It fails with
// model.ErrConflict if the item is no longer in status from. Reopening an
// item clears its match link.
func UpdateItemStatus(ctx context.Context, db *sql.DB, id, from, to string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE items
		 SET status = ?,
		     matched_with = CASE WHEN ? = 'open' THEN NULL ELSE matched_with END,
		     updated_at = ?
		 WHERE id = ? AND status = ?`,
		to, to, time.Now().UTC(), id, from,
	)
	if err != nil {
		return fmt.Errorf("updating item status: %w", err)
	}
	return expectOne(res, "item %s is no longer %s", id, from)
}

// RaiseMatchScore sets an item's match score to max(current, score). The
// update is a single statement, so concurrent raises may land in any order.
func RaiseMatchScore(ctx context.Context, db *sql.DB, id string, score float64) error {
	res, err := db.ExecContext(ctx,
		`UPDATE items SET match_score = MAX(match_score, ?) WHERE id = ?`,
		score, id,
	)
	if err != nil {
		return fmt.Errorf("raising match score: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("raising match score: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("item %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// LinkMatch marks a lost and a found item as matched with each other in one
// transaction. Each item must still be in the status the caller observed.
func LinkMatch(ctx context.Context, db *sql.DB, lostID, lostFrom, foundID, foundFrom string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	link := func(id, from, other string) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE items SET status = 'matched', matched_with = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			other, now, id, from,
		)
		if err != nil {
			return fmt.Errorf("linking item %s: %w", id, err)
		}
		return expectOne(res, "item %s is no longer %s", id, from)
	}

	if err := link(lostID, lostFrom, foundID); err != nil {
		return err
	}
	if err := link(foundID, foundFrom, lostID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing match: %w", err)
	}
	return nil
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, db *sql.DB, id string, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = ? WHERE id = ?`,
		image, mime, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, id string) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

// expectOne turns a compare-and-set update that touched no row into
// model.ErrConflict.
func expectOne(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), model.ErrConflict)
	}
	return nil
}
