// Package storetest provides an in-memory store.Store implementation for
// tests. The hive store's MarkHarvested mirrors the conditional-update
// semantics of the PostgreSQL implementation so concurrency properties can
// be exercised without a database.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hivelabs/hive-server/internal/models"
	"github.com/hivelabs/hive-server/internal/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu          sync.Mutex
	hives       map[string]*models.Hive
	secrets     map[string]*models.HiveSecrets
	messages    map[string][]*models.Message
	subscribers map[string][]*models.HarvestSubscriber

	// SecretGets counts SecretStore.Get calls, letting tests assert that
	// the empty-token path never touches the store.
	SecretGets int
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		hives:       make(map[string]*models.Hive),
		secrets:     make(map[string]*models.HiveSecrets),
		messages:    make(map[string][]*models.Message),
		subscribers: make(map[string][]*models.HarvestSubscriber),
	}
}

// Hives returns the hive sub-store.
func (s *Store) Hives() store.HiveStore { return (*hiveStore)(s) }

// Secrets returns the secret sub-store.
func (s *Store) Secrets() store.SecretStore { return (*secretStore)(s) }

// Messages returns the message sub-store.
func (s *Store) Messages() store.MessageStore { return (*messageStore)(s) }

// Subscribers returns the subscriber sub-store.
func (s *Store) Subscribers() store.SubscriberStore { return (*subscriberStore)(s) }

// WithTx runs fn against the same store. The in-memory store has no real
// transactions; per-call locking keeps individual operations atomic.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return fn(s)
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

type hiveStore Store

func (s *hiveStore) Create(ctx context.Context, hive *models.Hive) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hive.ID == "" {
		hive.ID = uuid.New().String()
	}
	if hive.CreatedAt.IsZero() {
		hive.CreatedAt = time.Now().UTC()
	}
	cp := *hive
	s.hives[hive.ID] = &cp
	return nil
}

func (s *hiveStore) Get(ctx context.Context, id string) (*models.Hive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hives[id]
	if !ok {
		return nil, nil
	}
	cp := *h
	return &cp, nil
}

func (s *hiveStore) MarkHarvested(ctx context.Context, id, thankYouMessage string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hives[id]
	if !ok || h.HarvestNotifiedAt != nil {
		return false, nil
	}
	t := at
	h.ThankYouMessage = thankYouMessage
	h.HarvestedAt = &t
	h.HarvestNotifiedAt = &t
	return true, nil
}

type secretStore Store

func (s *secretStore) Create(ctx context.Context, secrets *models.HiveSecrets) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *secrets
	s.secrets[secrets.HiveID] = &cp
	return nil
}

func (s *secretStore) Get(ctx context.Context, hiveID string) (*models.HiveSecrets, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.SecretGets++
	sec, ok := s.secrets[hiveID]
	if !ok {
		return nil, nil
	}
	cp := *sec
	return &cp, nil
}

type messageStore Store

func (s *messageStore) Create(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	cp := *msg
	s.messages[msg.HiveID] = append(s.messages[msg.HiveID], &cp)
	return nil
}

func (s *messageStore) ListByHive(ctx context.Context, hiveID string) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[hiveID]
	out := make([]*models.Message, 0, len(msgs))
	for _, m := range msgs {
		cp := *m
		out = append(out, &cp)
	}
	// Newest first, matching the postgres ORDER BY created_at DESC.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *messageStore) CountByHive(ctx context.Context, hiveID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.messages[hiveID]), nil
}

type subscriberStore Store

func (s *subscriberStore) Create(ctx context.Context, sub *models.HarvestSubscriber) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	cp := *sub
	s.subscribers[sub.HiveID] = append(s.subscribers[sub.HiveID], &cp)
	return nil
}

func (s *subscriberStore) ListEmails(ctx context.Context, hiveID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.subscribers[hiveID]
	emails := make([]string, 0, len(subs))
	for _, sub := range subs {
		emails = append(emails, sub.Email)
	}
	return emails, nil
}
