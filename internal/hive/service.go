// Package hive provides the hive lifecycle service: creation with atomic
// secret issuance, the contribution gate, subscriber registration and
// access-gated message listing.
package hive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hivelabs/hive-server/internal/access"
	"github.com/hivelabs/hive-server/internal/lifecycle"
	"github.com/hivelabs/hive-server/internal/models"
	"github.com/hivelabs/hive-server/internal/store"
	"github.com/hivelabs/hive-server/internal/validation"
)

// Domain errors.
var (
	// ErrNotFound is returned when the hive ID does not resolve.
	ErrNotFound = errors.New("hive not found")
	// ErrUnauthorized is returned when a privileged operation is
	// attempted without a valid token.
	ErrUnauthorized = errors.New("not authorized")
	// ErrNotRevealed is returned when messages are read before the
	// hive's reveal time.
	ErrNotRevealed = errors.New("hive is not revealed yet")
	// ErrClosed is returned when a write is attempted after closure.
	ErrClosed = errors.New("hive is closed")
)

// Service implements hive operations over the store.
type Service struct {
	store  store.Store
	access *access.Service
	logger *slog.Logger
}

// NewService creates a new hive service.
func NewService(st store.Store, accessSvc *access.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		access: accessSvc,
		logger: logger,
	}
}

// CreateResult carries the new hive and its two bearer tokens. This is the
// only place the tokens ever leave the system.
type CreateResult struct {
	Hive           *models.Hive
	ModeratorToken string
	RecipientToken string
}

// Create validates the input, then writes the hive and its secret pair as
// a single transaction. A hive without secrets is unusable and
// unrecoverable, so a secrets failure rolls back the hive row.
func (s *Service) Create(ctx context.Context, in *validation.HiveInput) (*CreateResult, error) {
	h, err := validation.ValidateHive(in)
	if err != nil {
		return nil, err
	}

	moderatorToken, recipientToken, err := access.IssueTokens()
	if err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.Hives().Create(ctx, h); err != nil {
			return fmt.Errorf("creating hive: %w", err)
		}
		return tx.Secrets().Create(ctx, &models.HiveSecrets{
			HiveID:         h.ID,
			ModeratorToken: moderatorToken,
			RecipientToken: recipientToken,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("hive created", "hive_id", h.ID, "mode", h.Mode)

	return &CreateResult{
		Hive:           h,
		ModeratorToken: moderatorToken,
		RecipientToken: recipientToken,
	}, nil
}

// Get retrieves a hive by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Hive, error) {
	h, err := s.store.Hives().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching hive: %w", err)
	}
	if h == nil {
		return nil, ErrNotFound
	}
	return h, nil
}

// SubmitMessage appends a message to an open hive. The closure gate lives
// here, at the durable-write path, because submission is reachable without
// going through any presentation layer. No token is required.
func (s *Service) SubmitMessage(ctx context.Context, hiveID, contributorName, message string, now time.Time) (*models.Message, error) {
	h, err := s.Get(ctx, hiveID)
	if err != nil {
		return nil, err
	}

	name, body, err := validation.ValidateMessage(contributorName, message)
	if err != nil {
		return nil, err
	}

	if !lifecycle.CanSubmit(h, now) {
		return nil, ErrClosed
	}

	msg := &models.Message{
		HiveID:          h.ID,
		ContributorName: name,
		Message:         body,
		CreatedAt:       now,
	}
	if err := s.store.Messages().Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	return msg, nil
}

// Subscribe registers an email for the harvest notification. Opt-in is
// open to anyone and allowed any time before harvest.
func (s *Service) Subscribe(ctx context.Context, hiveID, email string) (*models.HarvestSubscriber, error) {
	h, err := s.Get(ctx, hiveID)
	if err != nil {
		return nil, err
	}

	clean, err := validation.ValidateEmail(email)
	if err != nil {
		return nil, err
	}

	sub := &models.HarvestSubscriber{
		HiveID: h.ID,
		Email:  clean,
	}
	if err := s.store.Subscribers().Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("creating subscriber: %w", err)
	}

	return sub, nil
}

// ListMessages returns a hive's messages, newest first, applying both the
// authorization and reveal gates. A valid role alone is not enough: before
// reveal time even the moderator gets ErrNotRevealed.
func (s *Service) ListMessages(ctx context.Context, hiveID, token string, now time.Time) ([]*models.Message, error) {
	h, err := s.Get(ctx, hiveID)
	if err != nil {
		return nil, err
	}

	role, err := s.access.Verify(ctx, hiveID, token)
	if err != nil {
		return nil, err
	}
	if role == models.RoleUnauthorized {
		return nil, ErrUnauthorized
	}

	if !lifecycle.CanRead(role, h, now) {
		return nil, ErrNotRevealed
	}

	msgs, err := s.store.Messages().ListByHive(ctx, hiveID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return msgs, nil
}

// MessageCount returns the number of messages in a hive. The count is
// public: it reveals activity, not content.
func (s *Service) MessageCount(ctx context.Context, hiveID string) (int, error) {
	return s.store.Messages().CountByHive(ctx, hiveID)
}
