// Package lifecycle computes a hive's derived temporal state as pure
// functions of the stored timestamps and an explicit clock value. Callers
// sample the clock once per logical request and pass the same instant to
// every check so a single decision never straddles two different "now"s.
package lifecycle

import (
	"time"

	"github.com/hivelabs/hive-server/internal/models"
)

// IsClosed reports whether the hive no longer accepts contributions.
func IsClosed(h *models.Hive, now time.Time) bool {
	return !now.Before(h.ClosesAt)
}

// IsRevealed reports whether messages are visible to authorized readers.
// A reveal-mode hive with no reveal time is treated as never revealed;
// creation-time validation rejects that state, this is the defensive
// read-time default.
func IsRevealed(h *models.Hive, now time.Time) bool {
	if h.Mode == models.ModeLive {
		return true
	}
	if h.RevealAt == nil {
		return false
	}
	return !now.Before(*h.RevealAt)
}

// CanSubmit reports whether a new message may be added to the hive.
// Contribution requires no token: the capability is knowing the hive URL.
func CanSubmit(h *models.Hive, now time.Time) bool {
	return !IsClosed(h, now)
}

// CanRead reports whether the caller may list the hive's messages. Both
// conditions apply: a moderator does not bypass reveal gating, preserving
// the surprise semantics of reveal mode for the hive's creator too.
func CanRead(role models.Role, h *models.Hive, now time.Time) bool {
	return role != models.RoleUnauthorized && IsRevealed(h, now)
}
