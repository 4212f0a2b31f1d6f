// Package access provides capability-token issuance and verification for
// hives. A token is a random opaque bearer string scoped to one hive and
// one of two fixed roles; there are no sessions, no expiry and no
// revocation beyond the hive's own lifecycle.
package access

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/hivelabs/hive-server/internal/models"
	"github.com/hivelabs/hive-server/internal/store"
)

// TokenBytes is the entropy per token; hex encoding doubles the length on
// the wire, matching the 64-character tokens the service has always issued.
const TokenBytes = 32

// IssueTokens generates the moderator and recipient tokens for a new hive.
// Both draws come from a cryptographically strong source and are
// independent of each other.
func IssueTokens() (moderatorToken, recipientToken string, err error) {
	moderatorToken, err = newToken()
	if err != nil {
		return "", "", err
	}
	recipientToken, err = newToken()
	if err != nil {
		return "", "", err
	}
	return moderatorToken, recipientToken, nil
}

func newToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Service verifies presented tokens against a hive's stored secret pair.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

// NewService creates a new access service.
func NewService(st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		logger: logger,
	}
}

// Verify resolves the role a presented token grants on a hive. An empty
// token is Unauthorized without a store lookup. A hive with no secrets,
// or a token matching neither secret, is Unauthorized. Only store
// infrastructure failures produce a non-nil error.
func (s *Service) Verify(ctx context.Context, hiveID, token string) (models.Role, error) {
	if token == "" {
		return models.RoleUnauthorized, nil
	}

	secrets, err := s.store.Secrets().Get(ctx, hiveID)
	if err != nil {
		return models.RoleUnauthorized, fmt.Errorf("fetching hive secrets: %w", err)
	}
	if secrets == nil {
		return models.RoleUnauthorized, nil
	}

	// Constant-time comparison so verification cost does not depend on
	// how much of a guessed token matches.
	if tokenEqual(token, secrets.ModeratorToken) {
		return models.RoleModerator, nil
	}
	if tokenEqual(token, secrets.RecipientToken) {
		return models.RoleRecipient, nil
	}

	return models.RoleUnauthorized, nil
}

func tokenEqual(presented, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1
}
