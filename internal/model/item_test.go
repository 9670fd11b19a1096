package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionItem(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{ItemStatusOpen, ItemStatusMatched, true},
		{ItemStatusOpen, ItemStatusClaimed, true},
		{ItemStatusOpen, ItemStatusClosed, true},
		{ItemStatusOpen, ItemStatusReturned, false},
		{ItemStatusOpen, ItemStatusOpen, false},
		{ItemStatusMatched, ItemStatusOpen, true},
		{ItemStatusMatched, ItemStatusClaimed, true},
		{ItemStatusMatched, ItemStatusMatched, false},
		{ItemStatusClaimed, ItemStatusReturned, true},
		{ItemStatusClaimed, ItemStatusOpen, false},
		{ItemStatusReturned, ItemStatusClosed, true},
		{ItemStatusReturned, ItemStatusOpen, false},
		{"bogus", ItemStatusOpen, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransitionItem(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestClosedIsTerminal(t *testing.T) {
	for _, to := range []string{ItemStatusOpen, ItemStatusMatched, ItemStatusClaimed, ItemStatusReturned, ItemStatusClosed} {
		assert.False(t, CanTransitionItem(ItemStatusClosed, to), "closed -> %s", to)
	}
}

func TestOppositeType(t *testing.T) {
	assert.Equal(t, ItemTypeFound, OppositeType(ItemTypeLost))
	assert.Equal(t, ItemTypeLost, OppositeType(ItemTypeFound))
}

func validItem() *Item {
	return &Item{
		Type:        "Lost",
		Category:    "accessories",
		Title:       "  black wallet ",
		Description: "leather, two cards inside",
		Location:    "Central Park",
		Date:        time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestItemValidate(t *testing.T) {
	item := validItem()
	require.NoError(t, item.Validate())
	assert.Equal(t, ItemTypeLost, item.Type)
	assert.Equal(t, "black wallet", item.Title)

	tests := []struct {
		name   string
		mutate func(*Item)
	}{
		{"bad type", func(i *Item) { i.Type = "stolen" }},
		{"bad category", func(i *Item) { i.Category = "phones" }},
		{"empty title", func(i *Item) { i.Title = "   " }},
		{"long title", func(i *Item) { i.Title = strings.Repeat("x", MaxTitleLength+1) }},
		{"empty description", func(i *Item) { i.Description = "" }},
		{"long description", func(i *Item) { i.Description = strings.Repeat("x", MaxDescriptionLength+1) }},
		{"empty location", func(i *Item) { i.Location = " " }},
		{"zero date", func(i *Item) { i.Date = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := validItem()
			tt.mutate(item)
			assert.ErrorIs(t, item.Validate(), ErrValidation)
		})
	}
}

func TestValidateClaimMessage(t *testing.T) {
	assert.NoError(t, ValidateClaimMessage("it has my initials on the strap"))
	assert.ErrorIs(t, ValidateClaimMessage(" "), ErrValidation)
	assert.ErrorIs(t, ValidateClaimMessage(strings.Repeat("a", MaxClaimMessageLength+1)), ErrValidation)
}

func TestFeaturesEmpty(t *testing.T) {
	var nilFeatures *Features
	assert.True(t, nilFeatures.Empty())
	assert.True(t, (&Features{}).Empty())
	assert.False(t, (&Features{Size: "M"}).Empty())
}
