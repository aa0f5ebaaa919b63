package redisinfra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-identity-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

const codeKeyPrefix = "confirmation_code:"

// Generator produces a fresh confirmation code.
type Generator func() (string, error)

// CodeRepo is the Redis-backed confirmation-code store. Codes are keyed per
// user, so a re-issue overwrites (and thereby invalidates) the previous code,
// and expiry is enforced by Redis itself via key TTL — never by caller-side
// timestamp comparison. The store lives outside the API process and survives
// its restarts.
type CodeRepo struct {
	client redis.UniversalClient
	gen    Generator
	ttl    time.Duration
}

func NewCodeRepo(client redis.UniversalClient, gen Generator, ttl time.Duration) *CodeRepo {
	return &CodeRepo{client: client, gen: gen, ttl: ttl}
}

func codeKey(userID string) string { return codeKeyPrefix + userID }

// Issue generates a new code for userID and stores it under the configured
// TTL, replacing any code previously live for that user. Concurrent issues
// race-overwrite; last writer wins.
func (r *CodeRepo) Issue(ctx context.Context, userID string) (string, error) {
	c, err := r.gen()
	if err != nil {
		return "", err
	}
	if err := r.client.Set(ctx, codeKey(userID), c, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("store confirmation code: %w", domain.ErrStoreUnavailable)
	}
	return c, nil
}

// Peek returns the live code for userID without mutating it.
// Returns domain.ErrCodeExpiredOrMissing when no unexpired code exists.
func (r *CodeRepo) Peek(ctx context.Context, userID string) (string, error) {
	c, err := r.client.Get(ctx, codeKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("user %s: %w", userID, domain.ErrCodeExpiredOrMissing)
	}
	if err != nil {
		return "", fmt.Errorf("read confirmation code: %w", domain.ErrStoreUnavailable)
	}
	return c, nil
}

// Invalidate removes the stored code unconditionally. Idempotent.
func (r *CodeRepo) Invalidate(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, codeKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete confirmation code: %w", domain.ErrStoreUnavailable)
	}
	return nil
}
