package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/session-service/internal/auth"
	"github.com/spec-kit/session-service/internal/domain"
	"github.com/spec-kit/session-service/internal/events"
)

const testSecret = "service-test-secret-0123456789abcdef"

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: map[string]*domain.User{}}
}

func (m *memoryUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = "id-" + user.Username
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	m.users[user.Username] = &copied
	return nil
}

func (m *memoryUsers) UpdateStatus(_ context.Context, username string, status domain.UserStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[username]
	if !ok {
		return pgx.ErrNoRows
	}
	user.Status = status
	return nil
}

func (m *memoryUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[username]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func newTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret: []byte(testSecret),
		TTL:    15 * time.Minute,
		Issuer: "session-service",
	})
	require.NoError(t, err)
	return tokens
}

// recordingDispatcher captures published events.
type recordingDispatcher struct {
	events.Dispatcher
	mu        sync.Mutex
	published []events.Event
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{Dispatcher: events.NewInMemoryDispatcher()}
}

func (r *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	r.published = append(r.published, event)
	r.mu.Unlock()
	return r.Dispatcher.Publish(ctx, event)
}

func (r *recordingDispatcher) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.published))
	for _, e := range r.published {
		out = append(out, e.Type)
	}
	return out
}

func (r *recordingDispatcher) last() events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.published[len(r.published)-1]
}

func seedUser(t *testing.T, users *memoryUsers, username, password string, status domain.UserStatus) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Status:       status,
	}))
}
