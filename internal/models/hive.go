// Package models provides data structures for the hive server.
package models

import (
	"time"
)

// VisibilityMode controls when messages become visible to authorized readers.
type VisibilityMode string

const (
	// ModeLive makes messages visible immediately.
	ModeLive VisibilityMode = "live"
	// ModeReveal hides messages until the hive's scheduled reveal time.
	ModeReveal VisibilityMode = "reveal"
)

// Valid reports whether the mode is one of the known visibility modes.
func (m VisibilityMode) Valid() bool {
	return m == ModeLive || m == ModeReveal
}

// Role identifies the caller of a privileged hive operation.
type Role string

const (
	// RoleModerator is the hive creator, holder of the moderator token.
	RoleModerator Role = "moderator"
	// RoleRecipient is the honoree, holder of the recipient token.
	RoleRecipient Role = "recipient"
	// RoleUnauthorized is any caller without a matching token.
	RoleUnauthorized Role = "unauthorized"
)

// Hive represents a time-boxed collection of messages for a recipient.
type Hive struct {
	ID                string         `json:"id"`
	Title             string         `json:"title"`
	RecipientName     string         `json:"recipient_name"`
	Mode              VisibilityMode `json:"mode"`
	RevealAt          *time.Time     `json:"reveal_at,omitempty"` // required when Mode is reveal
	ClosesAt          time.Time      `json:"closes_at"`
	ThankYouMessage   string         `json:"thank_you_message,omitempty"`
	HarvestedAt       *time.Time     `json:"harvested_at,omitempty"`
	HarvestNotifiedAt *time.Time     `json:"harvest_notified_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Harvested reports whether the hive has completed its one-time harvest.
// HarvestNotifiedAt is the idempotency anchor: once set, harvest logic is
// never re-entered for this hive.
func (h *Hive) Harvested() bool {
	return h.HarvestNotifiedAt != nil
}

// HiveSecrets holds the two bearer tokens issued at hive creation. Tokens
// are never regenerated and are only exposed in the creation response.
type HiveSecrets struct {
	HiveID         string `json:"hive_id"`
	ModeratorToken string `json:"moderator_token"`
	RecipientToken string `json:"recipient_token"`
}
