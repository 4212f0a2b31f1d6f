package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hivelabs/hive-server/internal/models"
)

// SubscriberStore implements store.SubscriberStore using PostgreSQL.
type SubscriberStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *SubscriberStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Create inserts a new subscriber.
func (s *SubscriberStore) Create(ctx context.Context, sub *models.HarvestSubscriber) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO harvest_subscribers (id, hive_id, email, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.conn().ExecContext(ctx, query,
		sub.ID,
		sub.HiveID,
		sub.Email,
		sub.CreatedAt,
	)
	return err
}

// ListEmails retrieves all subscriber emails for a hive.
func (s *SubscriberStore) ListEmails(ctx context.Context, hiveID string) ([]string, error) {
	query := `
		SELECT email FROM harvest_subscribers
		WHERE hive_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.conn().QueryContext(ctx, query, hiveID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}

	return emails, rows.Err()
}
