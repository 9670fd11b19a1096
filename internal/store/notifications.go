package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nirojbhetuwal/lostbuddy/internal/model"
)

// CreateNotification stores n. Metadata is kept as a JSON object.
func CreateNotification(ctx context.Context, db *sql.DB, n *model.Notification) error {
	var metadata sql.NullString
	if len(n.Metadata) > 0 {
		b, err := json.Marshal(n.Metadata)
		if err != nil {
			return fmt.Errorf("encoding notification metadata: %w", err)
		}
		metadata = sql.NullString{String: string(b), Valid: true}
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, type, title, message, related_item_id, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, nullString(n.RelatedItemID), metadata, n.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	return nil
}

// ListNotifications returns a user's notifications, newest first.
func ListNotifications(ctx context.Context, db *sql.DB, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	query := `SELECT id, user_id, type, title, message, related_item_id, metadata, read, read_at, created_at
	          FROM notifications WHERE user_id = ?`
	args := []any{userID}
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		var related, metadata sql.NullString
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &related, &metadata,
			&n.Read, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		n.RelatedItemID = related.String
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &n.Metadata); err != nil {
				return nil, fmt.Errorf("decoding notification metadata: %w", err)
			}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// CountUnreadNotifications returns how many notifications the user has not read.
func CountUnreadNotifications(ctx context.Context, db *sql.DB, userID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return n, nil
}

// MarkNotificationRead marks one of the user's notifications as read.
func MarkNotificationRead(ctx context.Context, db *sql.DB, id, userID string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE notifications SET read = 1, read_at = COALESCE(read_at, ?)
		 WHERE id = ? AND user_id = ?`,
		time.Now().UTC(), id, userID,
	)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("notification %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification of the user as
// read and returns how many changed.
func MarkAllNotificationsRead(ctx context.Context, db *sql.DB, userID string) (int64, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE notifications SET read = 1, read_at = ? WHERE user_id = ? AND read = 0`,
		time.Now().UTC(), userID,
	)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	return res.RowsAffected()
}
