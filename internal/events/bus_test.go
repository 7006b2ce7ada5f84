package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memochat/internal/models"
)

type recordingSink struct {
	mu     sync.Mutex
	keys   []string
	events []any
	done   chan struct{}
}

func (s *recordingSink) Publish(ctx context.Context, routingKey string, event any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, routingKey)
	s.events = append(s.events, event)
	close(s.done)
	return nil
}

func messageEvent(id int64) models.ChatEvent {
	return models.ChatEvent{Type: models.EventMessageReceived, Message: &models.Message{ID: id}}
}

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus(4)
	a := bus.Subscribe()
	b := bus.Subscribe()
	defer a.Close()
	defer b.Close()

	bus.Publish(context.Background(), messageEvent(1))

	for _, sub := range []*Subscription{a, b} {
		event := <-sub.C()
		assert.Equal(t, int64(1), event.Message.ID)
		assert.NotZero(t, event.OccurredAt)
	}
}

func TestBusDropsOldestWhenFull(t *testing.T) {
	bus := NewBus(2)
	sub := bus.Subscribe()
	defer sub.Close()

	for i := int64(1); i <= 5; i++ {
		bus.Publish(context.Background(), messageEvent(i))
	}

	assert.Equal(t, 3, sub.Dropped())
	assert.Equal(t, int64(4), (<-sub.C()).Message.ID)
	assert.Equal(t, int64(5), (<-sub.C()).Message.ID)
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	bus := NewBus(1)
	sub := bus.Subscribe()
	sub.Close()
	sub.Close()

	_, ok := <-sub.C()
	assert.False(t, ok)
	bus.Publish(context.Background(), messageEvent(1))
}

func TestForwardPublishesWithRoutingKey(t *testing.T) {
	bus := NewBus(4)
	sub := bus.Subscribe()
	sink := &recordingSink{done: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopped := make(chan struct{})
	go func() {
		Forward(ctx, sub, sink)
		close(stopped)
	}()

	bus.Publish(ctx, models.ChatEvent{Type: models.EventChatCreated, Chat: &models.Chat{ChatID: 9}})
	select {
	case <-sink.done:
	case <-time.After(time.Second):
		require.Fail(t, "event not forwarded")
	}
	sub.Close()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		require.Fail(t, "forward did not stop after close")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, []string{"chat_events.chat_created"}, sink.keys)
	event, ok := sink.events[0].(models.ChatEvent)
	require.True(t, ok)
	assert.Equal(t, int64(9), event.Chat.ChatID)
}
