package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nirojbhetuwal/lostbuddy/internal/db"
	"github.com/nirojbhetuwal/lostbuddy/internal/model"
)

func TestNotifications(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	alice := mustUser(t, database, "alice", model.RoleUser)
	bob := mustUser(t, database, "bob", model.RoleUser)

	base := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"n1", "n2", "n3"} {
		err := CreateNotification(ctx, database, &model.Notification{
			ID:        id,
			UserID:    alice.ID,
			Type:      model.NotificationMatchFound,
			Title:     "Potential match found",
			Message:   "We found a potential match",
			Metadata:  map[string]any{"score": 0.82},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("CreateNotification: %v", err)
		}
	}

	list, err := ListNotifications(ctx, database, alice.ID, false, 0)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(list))
	}
	if list[0].ID != "n3" {
		t.Errorf("expected newest first, got %s", list[0].ID)
	}
	if list[0].Metadata["score"] != 0.82 {
		t.Errorf("expected metadata to round-trip, got %v", list[0].Metadata)
	}

	if err := MarkNotificationRead(ctx, database, "n1", alice.ID); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}
	if err := MarkNotificationRead(ctx, database, "n2", bob.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound marking another user's notification, got %v", err)
	}

	unread, _ := CountUnreadNotifications(ctx, database, alice.ID)
	if unread != 2 {
		t.Errorf("expected 2 unread, got %d", unread)
	}

	n, err := MarkAllNotificationsRead(ctx, database, alice.ID)
	if err != nil {
		t.Fatalf("MarkAllNotificationsRead: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 marked, got %d", n)
	}

	list, _ = ListNotifications(ctx, database, alice.ID, true, 10)
	if len(list) != 0 {
		t.Errorf("expected no unread notifications, got %d", len(list))
	}
}
