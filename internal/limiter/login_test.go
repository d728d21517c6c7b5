package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestLoginLimiterBlocksAfterBudget(t *testing.T) {
	_, client := newTestRedis(t)
	l := NewLoginLimiter(client, LoginConfig{MaxAttempts: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Enforce(ctx, "alice", "10.0.0.1"))
	}
	assert.ErrorIs(t, l.Enforce(ctx, "alice", "10.0.0.1"), ErrLoginRateLimited)
	assert.ErrorIs(t, l.Enforce(ctx, "ALICE", "10.0.0.1"), ErrLoginRateLimited, "usernames are case-insensitive")

	assert.NoError(t, l.Enforce(ctx, "alice", "10.0.0.2"), "other addresses keep their own budget")
	assert.NoError(t, l.Enforce(ctx, "bob", "10.0.0.1"))
}

func TestLoginLimiterWindowExpires(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewLoginLimiter(client, LoginConfig{MaxAttempts: 1, Window: time.Minute})
	ctx := context.Background()

	require.NoError(t, l.Enforce(ctx, "alice", "ip"))
	require.ErrorIs(t, l.Enforce(ctx, "alice", "ip"), ErrLoginRateLimited)

	assert.Equal(t, time.Minute, mr.TTL(loginKey("alice", "ip")))
	mr.FastForward(time.Minute + time.Second)

	assert.NoError(t, l.Enforce(ctx, "alice", "ip"))
}

func TestLoginLimiterReset(t *testing.T) {
	_, client := newTestRedis(t)
	l := NewLoginLimiter(client, LoginConfig{MaxAttempts: 1, Window: time.Minute})
	ctx := context.Background()

	require.NoError(t, l.Enforce(ctx, "alice", "ip"))
	require.NoError(t, l.Reset(ctx, "alice", "ip"))
	assert.NoError(t, l.Enforce(ctx, "alice", "ip"))
}

func TestLoginLimiterUnavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewLoginLimiter(client, LoginConfig{MaxAttempts: 1, Window: time.Minute})
	mr.Close()

	assert.ErrorIs(t, l.Enforce(context.Background(), "alice", "ip"), ErrLimiterUnavailable)
}

func TestDisabledLimiter(t *testing.T) {
	var l *LoginLimiter
	assert.NoError(t, l.Enforce(context.Background(), "alice", "ip"))
	assert.NoError(t, l.Reset(context.Background(), "alice", "ip"))

	_, client := newTestRedis(t)
	l = NewLoginLimiter(client, LoginConfig{})
	for i := 0; i < 10; i++ {
		assert.NoError(t, l.Enforce(context.Background(), "alice", "ip"))
	}
}

func TestLoginLimiterRepairsCounterWithoutExpiry(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewLoginLimiter(client, LoginConfig{MaxAttempts: 2, Window: time.Minute})
	ctx := context.Background()

	key := loginKey("alice", "ip")
	require.NoError(t, mr.Set(key, "5"))
	require.Equal(t, time.Duration(0), mr.TTL(key))

	assert.ErrorIs(t, l.Enforce(ctx, "alice", "ip"), ErrLoginRateLimited)
	assert.Equal(t, time.Minute, mr.TTL(key), "a counter left without expiry gets one on the next attempt")

	mr.FastForward(time.Minute + time.Second)
	assert.NoError(t, l.Enforce(ctx, "alice", "ip"))
}

func TestLoginLimiterKeepsWindowAcrossAttempts(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewLoginLimiter(client, LoginConfig{MaxAttempts: 5, Window: time.Minute})
	ctx := context.Background()

	require.NoError(t, l.Enforce(ctx, "alice", "ip"))
	mr.FastForward(40 * time.Second)
	require.NoError(t, l.Enforce(ctx, "alice", "ip"))

	assert.Equal(t, 20*time.Second, mr.TTL(loginKey("alice", "ip")), "later attempts do not extend the window")
}
