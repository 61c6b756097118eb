package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts requests per client IP and purpose in fixed Redis windows,
// and keeps per-email cooldown markers.
type Limiter struct {
	client        redis.Cmdable
	maxRequests   int
	window        time.Duration
	emailCooldown time.Duration
}

func NewLimiter(client redis.Cmdable, maxRequests int, window, emailCooldown time.Duration) *Limiter {
	return &Limiter{
		client:        client,
		maxRequests:   maxRequests,
		window:        window,
		emailCooldown: emailCooldown,
	}
}

func ipKey(ip, purpose string) string {
	return fmt.Sprintf("ratelimit:ip:%s:%s", purpose, ip)
}

func emailCooldownKey(email string) string {
	return fmt.Sprintf("ratelimit:email:%s", strings.ToLower(strings.TrimSpace(email)))
}

// AllowIPRequestWithPurpose counts one request for ip and purpose and reports
// whether it fits in the current window. The counter and its expiry are set
// in one MULTI block; the window starts with the first request.
func (l *Limiter) AllowIPRequestWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	key := ipKey(ip, purpose)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to count request: %w", err)
	}

	return incr.Val() <= int64(l.maxRequests), nil
}

// AcquireEmailCooldown starts the cooldown for email and reports whether it
// was free. A false result means an email went to this address recently.
func (l *Limiter) AcquireEmailCooldown(ctx context.Context, email string) (bool, error) {
	ok, err := l.client.SetNX(ctx, emailCooldownKey(email), "1", l.emailCooldown).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set email cooldown: %w", err)
	}
	return ok, nil
}
