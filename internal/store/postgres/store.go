// Package postgres provides PostgreSQL implementation of the store interfaces.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hivelabs/hive-server/internal/store"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger

	hives       *HiveStore
	secrets     *SecretStore
	messages    *MessageStore
	subscribers *SubscriberStore
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(dsn string) *Config {
	return &Config{
		DSN:             dsn,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

// NewPostgresStore creates a new PostgreSQL store with the given configuration.
func NewPostgresStore(cfg *Config, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &PostgresStore{
		db:     db,
		logger: logger,
	}

	// Initialize sub-stores
	s.hives = &HiveStore{db: db, logger: logger}
	s.secrets = &SecretStore{db: db, logger: logger}
	s.messages = &MessageStore{db: db, logger: logger}
	s.subscribers = &SubscriberStore{db: db, logger: logger}

	logger.Info("connected to PostgreSQL database")
	return s, nil
}

// Hives returns the HiveStore.
func (s *PostgresStore) Hives() store.HiveStore {
	return s.hives
}

// Secrets returns the SecretStore.
func (s *PostgresStore) Secrets() store.SecretStore {
	return s.secrets
}

// Messages returns the MessageStore.
func (s *PostgresStore) Messages() store.MessageStore {
	return s.messages
}

// Subscribers returns the SubscriberStore.
func (s *PostgresStore) Subscribers() store.SubscriberStore {
	return s.subscribers
}

// WithTx executes the given function within a database transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	// Create a transaction-scoped store
	txs := &txStore{
		tx:     tx,
		logger: s.logger,
	}

	// Execute the function
	if err := fn(txs); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	// Commit the transaction
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Ping verifies connectivity to the database.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	s.logger.Info("closing PostgreSQL connection")
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// txStore wraps a transaction and implements the Store interface.
type txStore struct {
	tx     *sql.Tx
	logger *slog.Logger

	hives       *HiveStore
	secrets     *SecretStore
	messages    *MessageStore
	subscribers *SubscriberStore
}

func (s *txStore) Hives() store.HiveStore {
	if s.hives == nil {
		s.hives = &HiveStore{tx: s.tx, logger: s.logger}
	}
	return s.hives
}

func (s *txStore) Secrets() store.SecretStore {
	if s.secrets == nil {
		s.secrets = &SecretStore{tx: s.tx, logger: s.logger}
	}
	return s.secrets
}

func (s *txStore) Messages() store.MessageStore {
	if s.messages == nil {
		s.messages = &MessageStore{tx: s.tx, logger: s.logger}
	}
	return s.messages
}

func (s *txStore) Subscribers() store.SubscriberStore {
	if s.subscribers == nil {
		s.subscribers = &SubscriberStore{tx: s.tx, logger: s.logger}
	}
	return s.subscribers
}

func (s *txStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	// Already in a transaction, just execute the function
	return fn(s)
}

func (s *txStore) Ping(ctx context.Context) error {
	// No-op for transaction store
	return nil
}

func (s *txStore) Close() error {
	// No-op for transaction store
	return nil
}

// queryable is an interface that both *sql.DB and *sql.Tx implement.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
