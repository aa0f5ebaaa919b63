// Package activation is the gate through which accounts become usable:
// it flips the persisted activation flag and mints (or reuses) the user's
// API token. Idempotent by construction, so racing verifications or replays
// converge on one active user with exactly one token row.
package activation

import (
	"context"

	"github.com/go-identity-api/internal/domain"
	pkgtoken "github.com/go-identity-api/internal/pkg/token"
)

type Service interface {
	Activate(ctx context.Context, userID string) (*domain.AuthToken, error)
}

type userStore interface {
	SetActive(ctx context.Context, userID string) error
}

type tokenStore interface {
	GetOrCreate(ctx context.Context, userID, freshToken string) (*domain.AuthToken, error)
}

type service struct {
	users  userStore
	tokens tokenStore
}

func NewService(users userStore, tokens tokenStore) Service {
	return &service{users: users, tokens: tokens}
}

// Activate sets the user active and get-or-creates their auth token.
// Calling it again for an already-active user is a no-op that returns the
// existing token: the fresh candidate token is only persisted when no row
// exists yet.
func (s *service) Activate(ctx context.Context, userID string) (*domain.AuthToken, error) {
	if err := s.users.SetActive(ctx, userID); err != nil {
		return nil, err
	}
	fresh, err := pkgtoken.NewAuthToken()
	if err != nil {
		return nil, err
	}
	return s.tokens.GetOrCreate(ctx, userID, fresh)
}
