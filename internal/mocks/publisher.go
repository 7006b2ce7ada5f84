package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// AuditPublisherMock stands in for the audit sink (rabbitmq in production).
type AuditPublisherMock struct {
	mock.Mock
}

func (m *AuditPublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *AuditPublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Published returns the events sent under routingKey, oldest first.
func (m *AuditPublisherMock) Published(routingKey string) []any {
	var out []any
	for _, call := range m.Calls {
		if call.Method == "Publish" && call.Arguments.String(1) == routingKey {
			out = append(out, call.Arguments.Get(2))
		}
	}
	return out
}
