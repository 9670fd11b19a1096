package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Item is a reported lost or found object.
type Item struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	Category    string       `json:"category"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Location    string       `json:"location"`
	Date        time.Time    `json:"date"`
	Features    *Features    `json:"features,omitempty"`
	ContactInfo *ContactInfo `json:"contact_info,omitempty"`
	Status      string       `json:"status"`
	MatchScore  float64      `json:"match_score"`
	MatchedWith string       `json:"matched_with,omitempty"`
	ReporterID  string       `json:"reporter_id"`
	ImageMime   string       `json:"image_mime,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Features holds the optional structured attributes of an item.
type Features struct {
	Color string `json:"color,omitempty"`
	Brand string `json:"brand,omitempty"`
	Model string `json:"model,omitempty"`
	Size  string `json:"size,omitempty"`
}

// Empty reports whether no feature is set.
func (f *Features) Empty() bool {
	return f == nil || (f.Color == "" && f.Brand == "" && f.Model == "" && f.Size == "")
}

// ContactInfo is an email/phone pair shared with the other party.
type ContactInfo struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Item types.
const (
	ItemTypeLost  = "lost"
	ItemTypeFound = "found"
)

// Item statuses.
const (
	ItemStatusOpen     = "open"
	ItemStatusMatched  = "matched"
	ItemStatusClaimed  = "claimed"
	ItemStatusReturned = "returned"
	ItemStatusClosed   = "closed"
)

// Categories is the closed set of item categories.
var Categories = []string{
	"electronics", "documents", "clothing", "accessories",
	"bags", "books", "keys", "jewelry", "pets", "other",
}

// Field limits.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 1000
)

// itemTransitions lists the allowed status moves. Statuses absent from the
// map, and closed, have no outgoing transitions.
var itemTransitions = map[string][]string{
	ItemStatusOpen:     {ItemStatusMatched, ItemStatusClaimed, ItemStatusClosed},
	ItemStatusMatched:  {ItemStatusClaimed, ItemStatusClosed, ItemStatusOpen},
	ItemStatusClaimed:  {ItemStatusReturned, ItemStatusClosed},
	ItemStatusReturned: {ItemStatusClosed},
}

// CanTransitionItem reports whether an item may move from one status to another.
func CanTransitionItem(from, to string) bool {
	for _, s := range itemTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// OppositeType returns the comparison pool for an item type.
func OppositeType(itemType string) string {
	if itemType == ItemTypeLost {
		return ItemTypeFound
	}
	return ItemTypeLost
}

// ValidItemType reports whether t is lost or found.
func ValidItemType(t string) bool {
	return t == ItemTypeLost || t == ItemTypeFound
}

// ValidItemStatus reports whether s is a known item status.
func ValidItemStatus(s string) bool {
	switch s {
	case ItemStatusOpen, ItemStatusMatched, ItemStatusClaimed, ItemStatusReturned, ItemStatusClosed:
		return true
	}
	return false
}

// ValidCategory reports whether c belongs to the closed category set.
func ValidCategory(c string) bool {
	for _, cat := range Categories {
		if cat == c {
			return true
		}
	}
	return false
}

// Validate checks the fields a reporter supplies when creating an item.
func (i *Item) Validate() error {
	i.Title = strings.TrimSpace(i.Title)
	i.Type = strings.ToLower(strings.TrimSpace(i.Type))

	switch {
	case !ValidItemType(i.Type):
		return fmt.Errorf("%w: type must be lost or found", ErrValidation)
	case !ValidCategory(i.Category):
		return fmt.Errorf("%w: unknown category %q", ErrValidation, i.Category)
	case i.Title == "":
		return fmt.Errorf("%w: title is required", ErrValidation)
	case utf8.RuneCountInString(i.Title) > MaxTitleLength:
		return fmt.Errorf("%w: title cannot exceed %d characters", ErrValidation, MaxTitleLength)
	case strings.TrimSpace(i.Description) == "":
		return fmt.Errorf("%w: description is required", ErrValidation)
	case utf8.RuneCountInString(i.Description) > MaxDescriptionLength:
		return fmt.Errorf("%w: description cannot exceed %d characters", ErrValidation, MaxDescriptionLength)
	case strings.TrimSpace(i.Location) == "":
		return fmt.Errorf("%w: location is required", ErrValidation)
	case i.Date.IsZero():
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	return nil
}
