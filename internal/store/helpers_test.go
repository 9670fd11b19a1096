package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/nirojbhetuwal/lostbuddy/internal/model"
)

func mustUser(t *testing.T, database *sql.DB, username, role string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), database, username, username+"@example.com", "", "hash", role)
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return u
}

func mustItem(t *testing.T, database *sql.DB, reporter *model.User, itemType, title string) *model.Item {
	t.Helper()
	it, err := CreateItem(context.Background(), database, &model.Item{
		Type:        itemType,
		Category:    "accessories",
		Title:       title,
		Description: "left on a bench",
		Location:    "Central Park",
		Date:        time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		ReporterID:  reporter.ID,
	})
	if err != nil {
		t.Fatalf("CreateItem(%s): %v", title, err)
	}
	return it
}

func mustClaim(t *testing.T, database *sql.DB, item *model.Item, user *model.User) *model.Claim {
	t.Helper()
	now := time.Now().UTC()
	c := &model.Claim{
		ID:        user.ID + "-" + item.ID,
		ItemID:    item.ID,
		UserID:    user.ID,
		Message:   "it is mine",
		Status:    model.ClaimStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := CreateClaim(context.Background(), database, c); err != nil {
		t.Fatalf("CreateClaim: %v", err)
	}
	return c
}
