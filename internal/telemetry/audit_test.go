package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"memochat/internal/mocks"
)

func TestEmitPublishesEnvelope(t *testing.T) {
	publisher := new(mocks.AuditPublisherMock)
	emitter := NewAuditEmitter(publisher, "audit.memochat", "memochat", "test")
	emitter.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	var published AuditEnvelope
	publisher.On("Publish", mock.Anything, "audit.memochat", mock.AnythingOfType("telemetry.AuditEnvelope")).
		Run(func(args mock.Arguments) { published = args.Get(2).(AuditEnvelope) }).
		Return(nil).Once()

	emitter.Emit(context.Background(), EventReconciliationNeeded, "ERROR", "sent but not stored", map[string]any{"tx_id": "abc"})

	publisher.AssertExpectations(t)
	require.Equal(t, EventReconciliationNeeded, published.EventType)
	assert.Equal(t, 1, published.SchemaVersion)
	assert.Equal(t, "2024-01-02T03:04:05Z", published.OccurredAt)
	assert.Equal(t, "abc", published.Payload.Details["tx_id"])
}

func TestEmitOnNilEmitterDoesNotPanic(t *testing.T) {
	var emitter *AuditEmitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), EventRecoveryNeeded, "ERROR", "x", nil)
	})
}

func TestEmitSwallowsPublishError(t *testing.T) {
	publisher := new(mocks.AuditPublisherMock)
	publisher.On("Publish", mock.Anything, "k", mock.Anything).Return(assert.AnError).Once()

	NewAuditEmitter(publisher, "k", "memochat", "test").Emit(context.Background(), EventRecoveryNeeded, "WARN", "x", nil)
	publisher.AssertExpectations(t)

	sent := publisher.Published("k")
	require.Len(t, sent, 1)
	assert.Equal(t, EventRecoveryNeeded, sent[0].(AuditEnvelope).EventType)
	assert.Empty(t, publisher.Published("other"))
}
