package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/session-service/internal/domain"
	"github.com/spec-kit/session-service/internal/events"
	"github.com/spec-kit/session-service/internal/limiter"
	apperrors "github.com/spec-kit/session-service/pkg/util/errorutil"
)

func newAuthService(t *testing.T, users *memoryUsers, l LoginLimiter, dispatcher events.Dispatcher) *AuthService {
	t.Helper()
	deps := AuthDependencies{
		Tokens:     newTokens(t),
		Limiter:    l,
		Dispatcher: dispatcher,
		BcryptCost: bcrypt.MinCost,
	}
	if users != nil {
		deps.Users = users
	}
	return NewAuthService(deps)
}

func statusOf(err error) int {
	return apperrors.ToDomainError(err).HTTPStatus
}

func TestLoginSucceeds(t *testing.T) {
	users := newMemoryUsers()
	seedUser(t, users, "alice", "correct-horse", domain.UserStatusActive)
	dispatcher := newRecordingDispatcher()
	svc := newAuthService(t, users, nil, dispatcher)

	user, token, err := svc.Login(context.Background(), " alice ", "correct-horse", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice", token.Subject)
	assert.NotEmpty(t, token.Value)
	assert.Equal(t, []events.EventType{events.EventLoginSucceeded}, dispatcher.types())
}

func TestLoginFailuresLookAlike(t *testing.T) {
	users := newMemoryUsers()
	seedUser(t, users, "alice", "correct-horse", domain.UserStatusActive)
	seedUser(t, users, "carol", "correct-horse", domain.UserStatusSuspended)
	dispatcher := newRecordingDispatcher()
	svc := newAuthService(t, users, nil, dispatcher)

	cases := map[string][2]string{
		"wrong password": {"alice", "nope"},
		"unknown user":   {"mallory", "correct-horse"},
		"suspended":      {"carol", "correct-horse"},
	}
	for name, creds := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := svc.Login(context.Background(), creds[0], creds[1], "")
			require.Error(t, err)
			de := apperrors.ToDomainError(err)
			assert.Equal(t, http.StatusUnauthorized, de.HTTPStatus)
			assert.Equal(t, "invalid credentials", de.Message)
			assert.Equal(t, events.EventLoginFailed, dispatcher.last().Type)
		})
	}
}

func TestLoginValidation(t *testing.T) {
	svc := newAuthService(t, newMemoryUsers(), nil, nil)

	_, _, err := svc.Login(context.Background(), "", "secret", "")
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	_, _, err = svc.Login(context.Background(), "alice", "", "")
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
}

func TestLoginWithoutAccountStore(t *testing.T) {
	svc := newAuthService(t, nil, nil, nil)

	_, _, err := svc.Login(context.Background(), "alice", "secret", "")
	assert.Equal(t, http.StatusServiceUnavailable, statusOf(err))
}

func TestLoginRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	users := newMemoryUsers()
	seedUser(t, users, "alice", "correct-horse", domain.UserStatusActive)
	l := limiter.NewLoginLimiter(client, limiter.LoginConfig{MaxAttempts: 2, Window: time.Minute})
	svc := newAuthService(t, users, l, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, err := svc.Login(ctx, "alice", "wrong", "10.0.0.1")
		assert.Equal(t, http.StatusUnauthorized, statusOf(err))
	}
	_, _, err := svc.Login(ctx, "alice", "correct-horse", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, statusOf(err))

	_, _, err = svc.Login(ctx, "alice", "correct-horse", "10.0.0.2")
	require.NoError(t, err)
	assert.False(t, mr.Exists("login:alice:10.0.0.2"), "successful login clears its counter")
}

func TestLoginLimiterOutageFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	users := newMemoryUsers()
	seedUser(t, users, "alice", "correct-horse", domain.UserStatusActive)
	l := limiter.NewLoginLimiter(client, limiter.LoginConfig{MaxAttempts: 1, Window: time.Minute})
	svc := newAuthService(t, users, l, nil)

	_, _, err := svc.Login(context.Background(), "alice", "correct-horse", "")
	assert.NoError(t, err)
}

func TestCreateUserAndSetStatus(t *testing.T) {
	users := newMemoryUsers()
	svc := newAuthService(t, users, nil, nil)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "dave", "pa55word")
	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusActive, user.Status)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pa55word")))

	_, _, err = svc.Login(ctx, "dave", "pa55word", "")
	require.NoError(t, err)

	require.NoError(t, svc.SetUserStatus(ctx, "dave", domain.UserStatusSuspended))
	_, _, err = svc.Login(ctx, "dave", "pa55word", "")
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))

	assert.Equal(t, http.StatusNotFound, statusOf(svc.SetUserStatus(ctx, "nobody", domain.UserStatusActive)))
	assert.Equal(t, http.StatusBadRequest, statusOf(svc.SetUserStatus(ctx, "dave", domain.UserStatus("GONE"))))
}
