package store

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nirojbhetuwal/lostbuddy/internal/db"
	"github.com/nirojbhetuwal/lostbuddy/internal/model"
)

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	alice := mustUser(t, database, "alice", model.RoleUser)

	item, err := CreateItem(ctx, database, &model.Item{
		Type:        model.ItemTypeLost,
		Category:    "electronics",
		Title:       "Phone",
		Description: "black phone in a red case",
		Location:    "Library",
		Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Features:    &model.Features{Color: "black", Brand: "Apple"},
		ContactInfo: &model.ContactInfo{Email: "alice@work.example"},
		ReporterID:  alice.ID,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Status != model.ItemStatusOpen {
		t.Errorf("expected status open, got %q", item.Status)
	}
	if item.MatchScore != 0 {
		t.Errorf("expected match score 0, got %v", item.MatchScore)
	}
	if item.Features == nil || item.Features.Brand != "Apple" {
		t.Errorf("expected features to round-trip, got %+v", item.Features)
	}
	if item.ContactInfo == nil || item.ContactInfo.Email != "alice@work.example" {
		t.Errorf("expected contact to round-trip, got %+v", item.ContactInfo)
	}
	if !item.Date.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected date %v", item.Date)
	}

	missing, err := GetItem(ctx, database, "nope")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing item")
	}
}

func TestCreateItemWithoutFeatures(t *testing.T) {
	database := db.NewTestDB(t)
	alice := mustUser(t, database, "alice", model.RoleUser)

	item := mustItem(t, database, alice, model.ItemTypeFound, "Umbrella")
	if item.Features != nil {
		t.Errorf("expected nil features, got %+v", item.Features)
	}
	if item.ContactInfo != nil {
		t.Errorf("expected nil contact, got %+v", item.ContactInfo)
	}
}

func TestListItemsFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	alice := mustUser(t, database, "alice", model.RoleUser)
	bob := mustUser(t, database, "bob", model.RoleUser)

	mustItem(t, database, alice, model.ItemTypeLost, "Blue Backpack")
	mustItem(t, database, alice, model.ItemTypeFound, "Keys")
	mustItem(t, database, bob, model.ItemTypeLost, "Wallet")

	tests := []struct {
		name   string
		filter ItemFilter
		want   int
	}{
		{"all", ItemFilter{}, 3},
		{"lost", ItemFilter{Type: model.ItemTypeLost}, 2},
		{"reporter", ItemFilter{ReporterID: alice.ID}, 2},
		{"search title", ItemFilter{Search: "backpack"}, 1},
		{"search location", ItemFilter{Search: "central"}, 3},
		{"closed", ItemFilter{Status: model.ItemStatusClosed}, 0},
		{"limit", ItemFilter{Limit: 2}, 2},
		{"offset", ItemFilter{Limit: 2, Offset: 2}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ListItems(ctx, database, tt.filter)
			if err != nil {
				t.Fatalf("ListItems: %v", err)
			}
			if len(items) != tt.want {
				t.Errorf("expected %d items, got %d", tt.want, len(items))
			}
		})
	}
}

func TestFindCandidates(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	alice := mustUser(t, database, "alice", model.RoleUser)

	lost := mustItem(t, database, alice, model.ItemTypeLost, "Wallet")
	found1 := mustItem(t, database, alice, model.ItemTypeFound, "Wallet")
	found2 := mustItem(t, database, alice, model.ItemTypeFound, "Purse")
	closed := mustItem(t, database, alice, model.ItemTypeFound, "Card")
	if err := UpdateItemStatus(ctx, database, closed.ID, model.ItemStatusOpen, model.ItemStatusClosed); err != nil {
		t.Fatalf("UpdateItemStatus: %v", err)
	}

	got, err := FindCandidates(ctx, database, model.ItemTypeFound, model.ItemStatusOpen, "accessories", lost.ID)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].ID != found1.ID || got[1].ID != found2.ID {
		t.Errorf("expected oldest first, got %s then %s", got[0].ID, got[1].ID)
	}
}

func TestUpdateItemStatusCompareAndSet(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	alice := mustUser(t, database, "alice", model.RoleUser)
	item := mustItem(t, database, alice, model.ItemTypeFound, "Watch")

	if err := UpdateItemStatus(ctx, database, item.ID, model.ItemStatusOpen, model.ItemStatusClaimed); err != nil {
		t.Fatalf("UpdateItemStatus: %v", err)
	}

	err := UpdateItemStatus(ctx, database, item.ID, model.ItemStatusOpen, model.ItemStatusClosed)
	if !errors.Is(err, model.ErrConflict) {
		t.Errorf("expected ErrConflict for stale status, got %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Status != model.ItemStatusClaimed {
		t.Errorf("expected status claimed, got %q", got.Status)
	}
}

func TestRaiseMatchScoreKeepsMaximum(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	alice := mustUser(t, database, "alice", model.RoleUser)
	item := mustItem(t, database, alice, model.ItemTypeLost, "Ring")

	for _, s := range []float64{0.72, 0.91, 0.8} {
		if err := RaiseMatchScore(ctx, database, item.ID, s); err != nil {
			t.Fatalf("RaiseMatchScore(%v): %v", s, err)
		}
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.MatchScore != 0.91 {
		t.Errorf("expected match score 0.91, got %v", got.MatchScore)
	}

	if err := RaiseMatchScore(ctx, database, "missing", 0.9); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLinkMatch(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	alice := mustUser(t, database, "alice", model.RoleUser)
	bob := mustUser(t, database, "bob", model.RoleUser)
	lost := mustItem(t, database, alice, model.ItemTypeLost, "Wallet")
	found := mustItem(t, database, bob, model.ItemTypeFound, "Wallet")

	if err := LinkMatch(ctx, database, lost.ID, model.ItemStatusOpen, found.ID, model.ItemStatusOpen); err != nil {
		t.Fatalf("LinkMatch: %v", err)
	}

	gotLost, _ := GetItem(ctx, database, lost.ID)
	gotFound, _ := GetItem(ctx, database, found.ID)
	if gotLost.Status != model.ItemStatusMatched || gotFound.Status != model.ItemStatusMatched {
		t.Errorf("expected both matched, got %q and %q", gotLost.Status, gotFound.Status)
	}
	if gotLost.MatchedWith != found.ID || gotFound.MatchedWith != lost.ID {
		t.Errorf("expected items linked to each other, got %q and %q", gotLost.MatchedWith, gotFound.MatchedWith)
	}

	// Reopening clears the link.
	if err := UpdateItemStatus(ctx, database, lost.ID, model.ItemStatusMatched, model.ItemStatusOpen); err != nil {
		t.Fatalf("UpdateItemStatus: %v", err)
	}
	gotLost, _ = GetItem(ctx, database, lost.ID)
	if gotLost.MatchedWith != "" {
		t.Errorf("expected link cleared, got %q", gotLost.MatchedWith)
	}
}

func TestLinkMatchStaleRollsBack(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	alice := mustUser(t, database, "alice", model.RoleUser)
	lost := mustItem(t, database, alice, model.ItemTypeLost, "Wallet")
	found := mustItem(t, database, alice, model.ItemTypeFound, "Wallet")

	if err := UpdateItemStatus(ctx, database, found.ID, model.ItemStatusOpen, model.ItemStatusClosed); err != nil {
		t.Fatalf("UpdateItemStatus: %v", err)
	}

	err := LinkMatch(ctx, database, lost.ID, model.ItemStatusOpen, found.ID, model.ItemStatusOpen)
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	gotLost, _ := GetItem(ctx, database, lost.ID)
	if gotLost.Status != model.ItemStatusOpen || gotLost.MatchedWith != "" {
		t.Errorf("expected lost item untouched, got status %q linked to %q", gotLost.Status, gotLost.MatchedWith)
	}
}

func TestItemImage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	alice := mustUser(t, database, "alice", model.RoleUser)
	item := mustItem(t, database, alice, model.ItemTypeFound, "Scarf")

	data := []byte{0xff, 0xd8, 0xff, 0xe0}
	if err := SetItemImage(ctx, database, item.ID, data, "image/jpeg"); err != nil {
		t.Fatalf("SetItemImage: %v", err)
	}

	got, mime, err := GetItemImage(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItemImage: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("image bytes differ")
	}
	if mime != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", mime)
	}

	withMime, _ := GetItem(ctx, database, item.ID)
	if withMime.ImageMime != "image/jpeg" {
		t.Errorf("expected item to report image mime, got %q", withMime.ImageMime)
	}
}
