package limiter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrLoginRateLimited is returned once a username and address spent their attempts.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrLimiterUnavailable wraps Redis failures; callers decide whether to fail open.
	ErrLimiterUnavailable = errors.New("login limiter unavailable")
)

// LoginConfig sets the attempt budget per window.
type LoginConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// LoginLimiter counts login attempts per username and client address in a
// fixed Redis window.
type LoginLimiter struct {
	redis       redis.UniversalClient
	maxAttempts int
	window      time.Duration
}

// NewLoginLimiter builds a limiter over redisClient.
func NewLoginLimiter(redisClient redis.UniversalClient, cfg LoginConfig) *LoginLimiter {
	return &LoginLimiter{
		redis:       redisClient,
		maxAttempts: cfg.MaxAttempts,
		window:      cfg.Window,
	}
}

// Enforce records an attempt and fails once the window's budget is spent.
// A nil limiter or a non-positive budget disables throttling.
func (l *LoginLimiter) Enforce(ctx context.Context, username, ip string) error {
	if l == nil || l.redis == nil || l.maxAttempts <= 0 {
		return nil
	}

	key := loginKey(username, ip)
	var incr *redis.IntCmd
	// INCR and EXPIRE NX run in one MULTI/EXEC so a counter never outlives its window.
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}

	if incr.Val() > int64(l.maxAttempts) {
		return ErrLoginRateLimited
	}
	return nil
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, username, ip string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	if err := l.redis.Del(ctx, loginKey(username, ip)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	return nil
}

func loginKey(username, ip string) string {
	return "login:" + strings.ToLower(username) + ":" + ip
}
