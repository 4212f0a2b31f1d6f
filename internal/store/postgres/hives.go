package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hivelabs/hive-server/internal/models"
)

// HiveStore implements store.HiveStore using PostgreSQL.
type HiveStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *HiveStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Create inserts a new hive.
func (s *HiveStore) Create(ctx context.Context, hive *models.Hive) error {
	if hive.ID == "" {
		hive.ID = uuid.New().String()
	}
	if hive.CreatedAt.IsZero() {
		hive.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO hives (id, title, recipient_name, mode, reveal_at, closes_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.conn().ExecContext(ctx, query,
		hive.ID,
		hive.Title,
		hive.RecipientName,
		string(hive.Mode),
		hive.RevealAt,
		hive.ClosesAt,
		hive.CreatedAt,
	)
	return err
}

// Get retrieves a hive by ID.
func (s *HiveStore) Get(ctx context.Context, id string) (*models.Hive, error) {
	query := `
		SELECT id, title, recipient_name, mode, reveal_at, closes_at,
		       thank_you_message, harvested_at, harvest_notified_at, created_at
		FROM hives WHERE id = $1
	`

	var h models.Hive
	var mode string
	var revealAt, harvestedAt, notifiedAt sql.NullTime
	var thankYou sql.NullString

	err := s.conn().QueryRowContext(ctx, query, id).Scan(
		&h.ID, &h.Title, &h.RecipientName, &mode,
		&revealAt, &h.ClosesAt, &thankYou, &harvestedAt, &notifiedAt, &h.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	h.Mode = models.VisibilityMode(mode)
	if revealAt.Valid {
		h.RevealAt = &revealAt.Time
	}
	if thankYou.Valid {
		h.ThankYouMessage = thankYou.String
	}
	if harvestedAt.Valid {
		h.HarvestedAt = &harvestedAt.Time
	}
	if notifiedAt.Valid {
		h.HarvestNotifiedAt = &notifiedAt.Time
	}

	return &h, nil
}

// MarkHarvested atomically records the harvest outcome. The conditional
// WHERE clause makes exactly one concurrent caller succeed; everyone else
// observes zero affected rows.
func (s *HiveStore) MarkHarvested(ctx context.Context, id, thankYouMessage string, at time.Time) (bool, error) {
	query := `
		UPDATE hives
		SET thank_you_message = $2, harvested_at = $3, harvest_notified_at = $3
		WHERE id = $1 AND harvest_notified_at IS NULL
	`

	res, err := s.conn().ExecContext(ctx, query, id, thankYouMessage, at)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

// SecretStore implements store.SecretStore using PostgreSQL.
type SecretStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *SecretStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Create inserts the secret pair for a hive.
func (s *SecretStore) Create(ctx context.Context, secrets *models.HiveSecrets) error {
	query := `
		INSERT INTO hive_secrets (hive_id, moderator_token, recipient_token)
		VALUES ($1, $2, $3)
	`

	_, err := s.conn().ExecContext(ctx, query,
		secrets.HiveID,
		secrets.ModeratorToken,
		secrets.RecipientToken,
	)
	return err
}

// Get retrieves the secret pair for a hive.
func (s *SecretStore) Get(ctx context.Context, hiveID string) (*models.HiveSecrets, error) {
	query := `
		SELECT hive_id, moderator_token, recipient_token
		FROM hive_secrets WHERE hive_id = $1
	`

	var sec models.HiveSecrets
	err := s.conn().QueryRowContext(ctx, query, hiveID).Scan(
		&sec.HiveID, &sec.ModeratorToken, &sec.RecipientToken,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &sec, nil
}
