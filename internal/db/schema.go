package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. Timestamps are written by the store
// as time.Time values.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    username      TEXT NOT NULL,
    email         TEXT NOT NULL,
    phone         TEXT,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
    created_at    DATETIME NOT NULL,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_active
    ON users(email) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS items (
    id            TEXT PRIMARY KEY,
    type          TEXT NOT NULL CHECK (type IN ('lost', 'found')),
    category      TEXT NOT NULL,
    title         TEXT NOT NULL,
    description   TEXT NOT NULL,
    location      TEXT NOT NULL,
    date          DATETIME NOT NULL,
    color         TEXT,
    brand         TEXT,
    model         TEXT,
    size          TEXT,
    contact_email TEXT,
    contact_phone TEXT,
    status        TEXT NOT NULL DEFAULT 'open'
                  CHECK (status IN ('open', 'matched', 'claimed', 'returned', 'closed')),
    match_score   REAL NOT NULL DEFAULT 0,
    matched_with  TEXT REFERENCES items(id),
    reporter_id   TEXT NOT NULL REFERENCES users(id),
    image         BLOB,
    image_mime    TEXT,
    created_at    DATETIME NOT NULL,
    updated_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_candidates
    ON items(type, status, category);

CREATE INDEX IF NOT EXISTS idx_items_reporter
    ON items(reporter_id);

CREATE TABLE IF NOT EXISTS claims (
    id               TEXT PRIMARY KEY,
    item_id          TEXT NOT NULL REFERENCES items(id),
    user_id          TEXT NOT NULL REFERENCES users(id),
    message          TEXT NOT NULL,
    contact_email    TEXT,
    contact_phone    TEXT,
    status           TEXT NOT NULL DEFAULT 'pending'
                     CHECK (status IN ('pending', 'approved', 'rejected', 'cancelled')),
    approved_by      TEXT REFERENCES users(id),
    approved_at      DATETIME,
    rejection_reason TEXT,
    created_at       DATETIME NOT NULL,
    updated_at       DATETIME NOT NULL,
    UNIQUE (item_id, user_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_claims_one_approved
    ON claims(item_id) WHERE status = 'approved';

CREATE TABLE IF NOT EXISTS notifications (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL REFERENCES users(id),
    type            TEXT NOT NULL,
    title           TEXT NOT NULL,
    message         TEXT NOT NULL,
    related_item_id TEXT,
    metadata        TEXT,
    read            INTEGER NOT NULL DEFAULT 0,
    read_at         DATETIME,
    created_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_user
    ON notifications(user_id, read, created_at);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
