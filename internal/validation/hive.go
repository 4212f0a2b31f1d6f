// Package validation provides input validation for hive creation and
// contribution requests.
package validation

import (
	"strings"
	"time"

	"github.com/hivelabs/hive-server/internal/models"
)

// HiveInput carries the raw creation parameters before validation.
type HiveInput struct {
	Title         string
	RecipientName string
	Mode          string
	RevealAt      *time.Time
	ClosesAt      *time.Time
}

// ValidateHive checks hive creation input and returns the normalized
// values. Live mode forces RevealAt to nil; reveal mode requires it. No
// ordering is imposed between RevealAt and ClosesAt: a hive that reveals
// after it closes is legal.
func ValidateHive(in *HiveInput) (*models.Hive, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, &models.ValidationError{
			Field:   "title",
			Message: "title is required",
		}
	}

	recipient := strings.TrimSpace(in.RecipientName)
	if recipient == "" {
		return nil, &models.ValidationError{
			Field:   "recipient_name",
			Message: "recipient name is required",
		}
	}

	mode := models.VisibilityMode(in.Mode)
	if !mode.Valid() {
		return nil, &models.ValidationError{
			Field:   "mode",
			Message: `mode must be "live" or "reveal"`,
		}
	}

	if in.ClosesAt == nil || in.ClosesAt.IsZero() {
		return nil, &models.ValidationError{
			Field:   "closes_at",
			Message: "closes_at is required",
		}
	}

	var revealAt *time.Time
	if mode == models.ModeReveal {
		if in.RevealAt == nil || in.RevealAt.IsZero() {
			return nil, &models.ValidationError{
				Field:   "reveal_at",
				Message: "reveal mode requires reveal_at",
			}
		}
		t := in.RevealAt.UTC()
		revealAt = &t
	}

	return &models.Hive{
		Title:         title,
		RecipientName: recipient,
		Mode:          mode,
		RevealAt:      revealAt,
		ClosesAt:      in.ClosesAt.UTC(),
	}, nil
}

// ValidateMessage checks a message submission and returns the trimmed
// contributor name and message body.
func ValidateMessage(contributorName, message string) (string, string, error) {
	name := strings.TrimSpace(contributorName)
	if name == "" {
		return "", "", &models.ValidationError{
			Field:   "contributor_name",
			Message: "contributor name is required",
		}
	}

	body := strings.TrimSpace(message)
	if body == "" {
		return "", "", &models.ValidationError{
			Field:   "message",
			Message: "message is required",
		}
	}

	return name, body, nil
}

// ValidateEmail checks a harvest subscription address and returns it
// trimmed. Deliverability is not checked here; a bad address simply fails
// at send time during the best-effort fan-out.
func ValidateEmail(email string) (string, error) {
	clean := strings.TrimSpace(email)
	if clean == "" {
		return "", &models.ValidationError{
			Field:   "email",
			Message: "email is required",
		}
	}
	if !strings.Contains(clean, "@") {
		return "", &models.ValidationError{
			Field:   "email",
			Message: "email must be a valid address",
		}
	}
	return clean, nil
}
