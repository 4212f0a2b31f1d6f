package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hivelabs/hive-server/internal/models"
)

// MessageStore implements store.MessageStore using PostgreSQL.
type MessageStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *MessageStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Create inserts a new message.
func (s *MessageStore) Create(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO messages (id, hive_id, contributor_name, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.conn().ExecContext(ctx, query,
		msg.ID,
		msg.HiveID,
		msg.ContributorName,
		msg.Message,
		msg.CreatedAt,
	)
	return err
}

// ListByHive retrieves all messages for a hive, newest first.
func (s *MessageStore) ListByHive(ctx context.Context, hiveID string) ([]*models.Message, error) {
	query := `
		SELECT id, hive_id, contributor_name, message, created_at
		FROM messages WHERE hive_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.conn().QueryContext(ctx, query, hiveID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(
			&m.ID, &m.HiveID, &m.ContributorName, &m.Message, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}

	return messages, rows.Err()
}

// CountByHive returns the number of messages in a hive.
func (s *MessageStore) CountByHive(ctx context.Context, hiveID string) (int, error) {
	query := `SELECT COUNT(*) FROM messages WHERE hive_id = $1`

	var count int
	if err := s.conn().QueryRowContext(ctx, query, hiveID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
