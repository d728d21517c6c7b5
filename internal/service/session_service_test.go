package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/session-service/internal/auth"
	"github.com/spec-kit/session-service/internal/domain"
	"github.com/spec-kit/session-service/internal/events"
	"github.com/spec-kit/session-service/internal/observability"
)

type failingRefresher struct{ err error }

func (f failingRefresher) Refresh(string) (*auth.SignedToken, error) { return nil, f.err }

func TestSessionStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status domain.SessionStatus
		reason domain.RejectReason
	}{
		{nil, domain.SessionAuthenticated, domain.RejectNone},
		{auth.ErrTokenExpired, domain.SessionExpired, domain.RejectExpired},
		{fmt.Errorf("%w: bad signature", auth.ErrInvalidToken), domain.SessionExpired, domain.RejectInvalid},
		{errors.New("signing failed"), domain.SessionExpired, domain.RejectInvalid},
	}
	for _, tc := range cases {
		status, reason := sessionStatusFor(tc.err)
		assert.Equal(t, tc.status, status, "%v", tc.err)
		assert.Equal(t, tc.reason, reason, "%v", tc.err)
	}
}

func TestVerifySessionMissingToken(t *testing.T) {
	metrics := observability.NewMetrics()
	svc := NewSessionService(newTokens(t), nil, metrics, nil)

	result := svc.VerifySession(context.Background(), "", "127.0.0.1")
	assert.Equal(t, domain.SessionUnauthenticated, result.Status)
	assert.Nil(t, result.Session)
	assert.Equal(t, int64(1), metrics.Snapshot().SessionOutcomes["UNAUTHENTICATED|missing"])
}

func TestVerifySessionRotates(t *testing.T) {
	tokens := newTokens(t)
	dispatcher := newRecordingDispatcher()
	svc := NewSessionService(tokens, dispatcher, nil, nil)

	issued, err := tokens.Issue("alice")
	require.NoError(t, err)

	result := svc.VerifySession(context.Background(), issued.Value, "127.0.0.1")
	require.Equal(t, domain.SessionAuthenticated, result.Status)
	require.NotNil(t, result.Session)
	assert.Equal(t, "alice", result.Session.Subject)
	assert.NotEqual(t, issued.Value, result.Session.Token)
	assert.Equal(t, []events.EventType{events.EventSessionVerified}, dispatcher.types())
	assert.Equal(t, "alice", dispatcher.last().Subject)
}

func TestVerifySessionCollapsesFailures(t *testing.T) {
	tokens := newTokens(t)
	metrics := observability.NewMetrics()
	dispatcher := newRecordingDispatcher()
	svc := NewSessionService(tokens, dispatcher, metrics, nil)

	stale, err := tokens.Encode("alice", time.Now().Add(-time.Hour), time.Minute)
	require.NoError(t, err)

	expired := svc.VerifySession(context.Background(), stale.Value, "")
	invalid := svc.VerifySession(context.Background(), "garbage", "")

	assert.Equal(t, domain.SessionExpired, expired.Status)
	assert.Equal(t, domain.SessionExpired, invalid.Status)
	assert.Equal(t, domain.RejectExpired, expired.Reason)
	assert.Equal(t, domain.RejectInvalid, invalid.Reason)
	assert.Nil(t, expired.Session)
	assert.Nil(t, invalid.Session)

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.SessionOutcomes["EXPIRED|expired"])
	assert.Equal(t, int64(1), snap.SessionOutcomes["EXPIRED|invalid"])

	payload, ok := dispatcher.last().Payload.(events.SessionRejectedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.RejectInvalid, payload.Reason)
}

func TestVerifySessionUnexpectedRefreshError(t *testing.T) {
	svc := NewSessionService(failingRefresher{err: errors.New("hsm offline")}, nil, nil, nil)

	result := svc.VerifySession(context.Background(), "token", "")
	assert.Equal(t, domain.SessionExpired, result.Status)
}

func TestLogoutIsIdempotent(t *testing.T) {
	dispatcher := newRecordingDispatcher()
	svc := NewSessionService(failingRefresher{err: errors.New("must not be called")}, dispatcher, nil, nil)

	for i := 0; i < 3; i++ {
		svc.Logout(context.Background(), "127.0.0.1")
	}
	assert.Equal(t, []events.EventType{
		events.EventSessionLoggedOut,
		events.EventSessionLoggedOut,
		events.EventSessionLoggedOut,
	}, dispatcher.types())
}
