package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Claim is a user's assertion of ownership over a found item.
type Claim struct {
	ID              string       `json:"id"`
	ItemID          string       `json:"item_id"`
	UserID          string       `json:"user_id"`
	Message         string       `json:"message"`
	ContactInfo     *ContactInfo `json:"contact_info,omitempty"`
	Status          string       `json:"status"`
	ApprovedBy      string       `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time   `json:"approved_at,omitempty"`
	RejectionReason string       `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`

	// Joined fields (not always populated).
	ItemTitle string `json:"item_title,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Claim statuses. Everything except pending is terminal.
const (
	ClaimStatusPending   = "pending"
	ClaimStatusApproved  = "approved"
	ClaimStatusRejected  = "rejected"
	ClaimStatusCancelled = "cancelled"
)

// MaxClaimMessageLength bounds the claim message.
const MaxClaimMessageLength = 500

// Rejection reasons assigned by the system.
const (
	ReasonSiblingApproved = "Another claim was approved for this item"
	ReasonDefaultReject   = "Claim rejected by item owner"
)

// Terminal reports whether no further transition may leave the claim's status.
func (c *Claim) Terminal() bool {
	return c.Status != ClaimStatusPending
}

// ValidateClaimMessage checks the claimant's explanation.
func ValidateClaimMessage(message string) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("%w: please provide a message explaining your claim", ErrValidation)
	}
	if utf8.RuneCountInString(message) > MaxClaimMessageLength {
		return fmt.Errorf("%w: message cannot exceed %d characters", ErrValidation, MaxClaimMessageLength)
	}
	return nil
}
