// Package store provides database access interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/hivelabs/hive-server/internal/models"
)

// HiveStore defines operations for hive records.
type HiveStore interface {
	// Create inserts a new hive.
	Create(ctx context.Context, hive *models.Hive) error
	// Get retrieves a hive by ID. Returns (nil, nil) when absent.
	Get(ctx context.Context, id string) (*models.Hive, error)
	// MarkHarvested atomically records the harvest outcome, guarded by
	// harvest_notified_at being unset. It returns false when another
	// caller already harvested the hive, which makes the single-shot
	// guarantee correct across processes without in-memory locks.
	MarkHarvested(ctx context.Context, id, thankYouMessage string, at time.Time) (bool, error)
}

// SecretStore defines operations for hive bearer tokens.
type SecretStore interface {
	// Create inserts the secret pair for a hive. Called exactly once,
	// inside the same transaction that creates the hive.
	Create(ctx context.Context, secrets *models.HiveSecrets) error
	// Get retrieves the secret pair for a hive. Returns (nil, nil) when
	// absent.
	Get(ctx context.Context, hiveID string) (*models.HiveSecrets, error)
}

// MessageStore defines operations for hive messages.
type MessageStore interface {
	// Create inserts a new message.
	Create(ctx context.Context, msg *models.Message) error
	// ListByHive retrieves all messages for a hive, newest first.
	ListByHive(ctx context.Context, hiveID string) ([]*models.Message, error)
	// CountByHive returns the number of messages in a hive.
	CountByHive(ctx context.Context, hiveID string) (int, error)
}

// SubscriberStore defines operations for harvest notification opt-ins.
type SubscriberStore interface {
	// Create inserts a new subscriber.
	Create(ctx context.Context, sub *models.HarvestSubscriber) error
	// ListEmails retrieves all subscriber emails for a hive, in
	// registration order. Duplicates and blanks are returned as stored;
	// the harvest orchestrator cleans the list.
	ListEmails(ctx context.Context, hiveID string) ([]string, error)
}

// Store is the main interface for database operations.
type Store interface {
	// Hives returns the HiveStore for hive operations.
	Hives() HiveStore
	// Secrets returns the SecretStore for token operations.
	Secrets() SecretStore
	// Messages returns the MessageStore for message operations.
	Messages() MessageStore
	// Subscribers returns the SubscriberStore for opt-in operations.
	Subscribers() SubscriberStore

	// WithTx executes the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// Otherwise, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Ping verifies connectivity to the backing database.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
