package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/redmonkez12/eventflow/internal/apperr"
)

const passwordResetTokenTTL = 1 * time.Hour

var ErrPasswordResetTokenNotFound = apperr.Validation("token", "invalid or expired reset token")

// PasswordResetRepository handles password reset token storage in Redis
type PasswordResetRepository struct {
	client redis.Cmdable
}

func NewPasswordResetRepository(client redis.Cmdable) *PasswordResetRepository {
	return &PasswordResetRepository{client: client}
}

// StorePasswordResetToken stores a password reset token with 1-hour TTL
func (r *PasswordResetRepository) StorePasswordResetToken(ctx context.Context, userID uuid.UUID, token string) error {
	key := passwordResetKey(token)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "user_id", userID.String())
		pipe.Expire(ctx, key, passwordResetTokenTTL)
		return nil
	})
	if err != nil {
		return apperr.Transient("failed to store password reset token", err)
	}

	return nil
}

// GetPasswordResetToken retrieves the user ID associated with a password reset token
func (r *PasswordResetRepository) GetPasswordResetToken(ctx context.Context, token string) (uuid.UUID, error) {
	userIDStr, err := r.client.HGet(ctx, passwordResetKey(token), "user_id").Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrPasswordResetTokenNotFound
	}
	if err != nil {
		return uuid.Nil, apperr.Transient("failed to get password reset token", err)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse user ID: %w", err)
	}

	return userID, nil
}

// DeletePasswordResetToken removes a used password reset token
func (r *PasswordResetRepository) DeletePasswordResetToken(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, passwordResetKey(token)).Err(); err != nil {
		return apperr.Transient("failed to delete password reset token", err)
	}
	return nil
}

func passwordResetKey(token string) string {
	return fmt.Sprintf("password_reset:%s", hashToken(token))
}
