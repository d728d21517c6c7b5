package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/session-service/internal/events"
	"github.com/spec-kit/session-service/internal/service"
)

func TestStartAuditWorkerSubscribes(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()

	StartAuditWorker(service.NewAuditService(dispatcher, zap.New(core)))

	err := dispatcher.Publish(context.Background(), events.NewEvent(events.EventSessionLoggedOut, "", "198.51.100.7", nil))
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("LoggedOut").Len())
}

func TestStartAuditWorkerNil(t *testing.T) {
	assert.NotPanics(t, func() { StartAuditWorker(nil) })
}
