package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/redmonkez12/eventflow/internal/apperr"
)

// RedisDenylist stores revoked token ids and per-user revocation cutoffs in
// Redis. Each marker expires when the tokens it covers would have, so the set
// never outgrows the live tokens.
type RedisDenylist struct {
	client   redis.Cmdable
	tokenTTL time.Duration
	now      func() time.Time
}

// NewRedisDenylist builds a denylist. tokenTTL is the longest lifetime of an
// issued access token and bounds how long per-user cutoffs are kept.
func NewRedisDenylist(client redis.Cmdable, tokenTTL time.Duration) *RedisDenylist {
	return &RedisDenylist{client: client, tokenTTL: tokenTTL, now: time.Now}
}

// getRevokedKey generates the Redis key for a revoked token marker
func getRevokedKey(tokenID string) string {
	return fmt.Sprintf("access_token:revoked:%s", hashToken(tokenID))
}

func getRevokedBeforeKey(userID uuid.UUID) string {
	return fmt.Sprintf("access_token:revoked_before:%s", userID)
}

// Revoke marks tokenID as revoked. Tokens already past expiry are ignored.
func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(d.now())
	if ttl <= 0 {
		return nil
	}

	if err := d.client.Set(ctx, getRevokedKey(tokenID), "1", ttl).Err(); err != nil {
		return apperr.Transient("failed to revoke token", err)
	}

	return nil
}

// RevokeUser invalidates every token of userID issued at or before at.
// Token timestamps have second precision, so a token issued in the same
// second is revoked too.
func (d *RedisDenylist) RevokeUser(ctx context.Context, userID uuid.UUID, at time.Time) error {
	cutoff := strconv.FormatInt(at.Unix(), 10)
	if err := d.client.Set(ctx, getRevokedBeforeKey(userID), cutoff, d.tokenTTL).Err(); err != nil {
		return apperr.Transient("failed to revoke user tokens", err)
	}
	return nil
}

// IsRevoked checks the token id and the user's cutoff in one round trip.
func (d *RedisDenylist) IsRevoked(ctx context.Context, claims *Claims) (bool, error) {
	values, err := d.client.MGet(ctx, getRevokedKey(claims.TokenID), getRevokedBeforeKey(claims.UserID)).Result()
	if err != nil {
		return false, apperr.Transient("failed to check revocation", err)
	}
	if values[0] != nil {
		return true, nil
	}

	raw, ok := values[1].(string)
	if !ok {
		return false, nil
	}
	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// unreadable cutoff: fail closed
		return true, nil
	}
	return claims.IssuedAt.Unix() <= cutoff, nil
}
