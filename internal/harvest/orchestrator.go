// Package harvest implements the one-time closing ritual for a hive:
// recording the thank-you message and fanning out notifications to
// opted-in subscribers.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hivelabs/hive-server/internal/access"
	"github.com/hivelabs/hive-server/internal/hive"
	"github.com/hivelabs/hive-server/internal/lifecycle"
	"github.com/hivelabs/hive-server/internal/models"
	"github.com/hivelabs/hive-server/internal/notify"
	"github.com/hivelabs/hive-server/internal/store"
)

// Harvest errors.
var (
	// ErrNotClosed is returned when harvest is attempted before the
	// hive's closing time has passed.
	ErrNotClosed = errors.New("hive is not closed yet")
	// ErrAlreadyHarvested is returned on a second harvest attempt.
	ErrAlreadyHarvested = errors.New("hive has already been harvested")
)

// DefaultNotifyTimeout bounds a single notification delivery attempt.
const DefaultNotifyTimeout = 10 * time.Second

// Orchestrator coordinates the harvest state machine. The single-shot
// guarantee is a data-layer concern: the store's conditional update on
// harvest_notified_at decides the winner among concurrent callers, so the
// orchestrator holds no locks of its own.
type Orchestrator struct {
	store         store.Store
	access        *access.Service
	notifier      notify.Notifier
	siteURL       string
	notifyTimeout time.Duration
	logger        *slog.Logger
}

// NewOrchestrator creates a harvest orchestrator.
func NewOrchestrator(st store.Store, accessSvc *access.Service, notifier notify.Notifier, siteURL string, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:         st,
		access:        accessSvc,
		notifier:      notifier,
		siteURL:       strings.TrimRight(siteURL, "/"),
		notifyTimeout: DefaultNotifyTimeout,
		logger:        logger,
	}
}

// SetNotifyTimeout overrides the per-address delivery timeout.
func (o *Orchestrator) SetNotifyTimeout(d time.Duration) {
	if d > 0 {
		o.notifyTimeout = d
	}
}

// Harvest runs the one-time harvest for a hive and returns the number of
// notifications delivered. Preconditions are checked in order; the first
// failing one determines the error. The harvest markers are persisted
// before any notification is dispatched: a crash mid-batch leaves the hive
// harvested, so a retry is rejected rather than re-sending. At most one
// full batch, possibly partial, never duplicates.
func (o *Orchestrator) Harvest(ctx context.Context, hiveID, token, thankYouMessage string, now time.Time) (int, error) {
	h, err := o.store.Hives().Get(ctx, hiveID)
	if err != nil {
		return 0, fmt.Errorf("fetching hive: %w", err)
	}
	if h == nil {
		return 0, hive.ErrNotFound
	}

	// Either role may harvest: recipients can close out their own hive.
	role, err := o.access.Verify(ctx, hiveID, token)
	if err != nil {
		return 0, err
	}
	if role == models.RoleUnauthorized {
		return 0, hive.ErrUnauthorized
	}

	thankYou := strings.TrimSpace(thankYouMessage)
	if thankYou == "" {
		return 0, &models.ValidationError{
			Field:   "thank_you_message",
			Message: "thank-you message is required",
		}
	}

	if !lifecycle.IsClosed(h, now) {
		return 0, ErrNotClosed
	}

	if h.Harvested() {
		return 0, ErrAlreadyHarvested
	}

	// The conditional update is the idempotency barrier: exactly one of
	// any number of concurrent callers gets true here.
	won, err := o.store.Hives().MarkHarvested(ctx, hiveID, thankYou, now)
	if err != nil {
		return 0, fmt.Errorf("marking hive harvested: %w", err)
	}
	if !won {
		return 0, ErrAlreadyHarvested
	}

	emails, err := o.store.Subscribers().ListEmails(ctx, hiveID)
	if err != nil {
		// The hive is already marked harvested; surface the store
		// failure but note that no notifications went out.
		return 0, fmt.Errorf("listing subscribers: %w", err)
	}

	sent := o.fanOut(ctx, h, thankYou, emails)
	o.logger.Info("hive harvested",
		"hive_id", h.ID,
		"role", role,
		"subscribers", len(emails),
		"sent", sent,
	)
	return sent, nil
}

// fanOut delivers one notification per distinct subscriber address.
// Delivery is best-effort and independent per address: a failure is logged
// and skipped, never aborting the rest of the batch.
func (o *Orchestrator) fanOut(ctx context.Context, h *models.Hive, thankYou string, emails []string) int {
	subject := fmt.Sprintf("The hive for %s has been harvested", h.RecipientName)
	body := fmt.Sprintf(
		"%s sends their thanks:\n\n%s\n\nRevisit the hive: %s/hive/%s\n",
		h.RecipientName, thankYou, o.siteURL, h.ID,
	)

	seen := make(map[string]struct{}, len(emails))
	sent := 0
	for _, email := range emails {
		addr := strings.TrimSpace(email)
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		nctx, cancel := context.WithTimeout(ctx, o.notifyTimeout)
		err := o.notifier.Notify(nctx, addr, subject, body)
		cancel()
		if err != nil {
			o.logger.Warn("harvest notification failed", "hive_id", h.ID, "error", err)
			continue
		}
		sent++
	}
	return sent
}
