package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, max int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLimiter(client, max, time.Minute, 2*time.Minute), mr
}

func TestLimiter_ExceedsAfterMax(t *testing.T) {
	l, _ := newLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := l.AllowIPRequestWithPurpose(ctx, "10.0.0.1", "login")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i)
	}

	allowed, err := l.AllowIPRequestWithPurpose(ctx, "10.0.0.1", "login")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = l.AllowIPRequestWithPurpose(ctx, "10.0.0.1", "register")
	require.NoError(t, err)
	assert.True(t, allowed, "purposes are counted separately")

	allowed, err = l.AllowIPRequestWithPurpose(ctx, "10.0.0.2", "login")
	require.NoError(t, err)
	assert.True(t, allowed, "addresses are counted separately")
}

func TestLimiter_WindowSetWithFirstRequest(t *testing.T) {
	l, mr := newLimiter(t, 1)
	ctx := context.Background()

	_, err := l.AllowIPRequestWithPurpose(ctx, "10.0.0.1", "login")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(ipKey("10.0.0.1", "login")))

	mr.FastForward(30 * time.Second)
	allowed, err := l.AllowIPRequestWithPurpose(ctx, "10.0.0.1", "login")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 30*time.Second, mr.TTL(ipKey("10.0.0.1", "login")), "later requests do not extend the window")

	mr.FastForward(31 * time.Second)

	allowed, err = l.AllowIPRequestWithPurpose(ctx, "10.0.0.1", "login")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLimiter_CounterWithoutExpiryGetsOne(t *testing.T) {
	l, mr := newLimiter(t, 5)
	ctx := context.Background()

	// a counter left behind without a TTL
	require.NoError(t, mr.Set(ipKey("10.0.0.1", "login"), "2"))

	_, err := l.AllowIPRequestWithPurpose(ctx, "10.0.0.1", "login")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(ipKey("10.0.0.1", "login")))
}

func TestLimiter_ConcurrentRequests(t *testing.T) {
	const limit = 5
	l, _ := newLimiter(t, limit)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.AllowIPRequestWithPurpose(ctx, "10.0.0.1", "login")
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, allowed)
}

func TestLimiter_EmailCooldown(t *testing.T) {
	l, mr := newLimiter(t, 10)
	ctx := context.Background()

	acquired, err := l.AcquireEmailCooldown(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = l.AcquireEmailCooldown(ctx, " A@X.com")
	require.NoError(t, err)
	assert.False(t, acquired)

	mr.FastForward(3 * time.Minute)

	acquired, err = l.AcquireEmailCooldown(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestLimiter_RedisDown(t *testing.T) {
	l, mr := newLimiter(t, 1)
	mr.Close()

	_, err := l.AllowIPRequestWithPurpose(context.Background(), "10.0.0.1", "login")
	assert.Error(t, err)

	_, err = l.AcquireEmailCooldown(context.Background(), "a@x.com")
	assert.Error(t, err)
}
