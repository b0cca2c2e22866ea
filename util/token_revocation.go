package util

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenRevoker remembers revoked token IDs in Redis until the tokens would
// have expired anyway. A nil client disables revocation.
type TokenRevoker struct {
	rdb *redis.Client
	now func() time.Time
}

func NewTokenRevoker(rdb *redis.Client) *TokenRevoker {
	return &TokenRevoker{rdb: rdb, now: time.Now}
}

// Enabled reports whether revocations are actually stored.
func (r *TokenRevoker) Enabled() bool {
	return r != nil && r.rdb != nil
}

func revokedTokenKey(tokenID string) string {
	return fmt.Sprintf("revoked_token:%s", tokenID)
}

// Revoke marks tokenID as revoked until expiresAt.
func (r *TokenRevoker) Revoke(ctx context.Context, subject, tokenID string, expiresAt time.Time) error {
	if !r.Enabled() {
		return nil
	}
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, revokedTokenKey(tokenID), subject, ttl).Err()
}

// IsRevoked reports whether tokenID was revoked.
func (r *TokenRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if !r.Enabled() {
		return false, nil
	}
	err := r.rdb.Get(ctx, revokedTokenKey(tokenID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
