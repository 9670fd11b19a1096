package model

import "time"

// Notification is an in-app message delivered to a user.
type Notification struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	Type          string         `json:"type"`
	Title         string         `json:"title"`
	Message       string         `json:"message"`
	RelatedItemID string         `json:"related_item_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Read          bool           `json:"read"`
	ReadAt        *time.Time     `json:"read_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Notification types.
const (
	NotificationMatchFound       = "match_found"
	NotificationMatchConfirmed   = "match_confirmed"
	NotificationNewClaim         = "new_claim"
	NotificationClaimApproved    = "claim_approved"
	NotificationClaimRejected    = "claim_rejected"
	NotificationItemStatusUpdate = "item_status_update"
	NotificationSystem           = "system"
)
