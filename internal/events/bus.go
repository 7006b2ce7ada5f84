// Package events fans domain events out to UI clients and external sinks.
package events

import (
	"context"
	"log"
	"sync"
	"time"

	"memochat/internal/models"
	"memochat/internal/observability"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 64

// Publisher accepts domain events.
type Publisher interface {
	Publish(ctx context.Context, event models.ChatEvent)
}

// Bus delivers every event to every subscriber. A full subscriber queue
// drops its oldest event so publishers never block.
type Bus struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
	now    func() time.Time
}

// NewBus creates a bus whose subscriptions hold up to buffer events.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{subs: map[*Subscription]struct{}{}, buffer: buffer, now: time.Now}
}

// Subscription is one consumer's view of the bus.
type Subscription struct {
	bus     *Bus
	ch      chan models.ChatEvent
	dropped int
	once    sync.Once
}

// C returns the event channel. It is closed by Close.
func (s *Subscription) C() <-chan models.ChatEvent { return s.ch }

// Dropped reports events discarded because the consumer fell behind.
func (s *Subscription) Dropped() int {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	return s.dropped
}

// Close detaches the subscription.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		close(s.ch)
		s.bus.mu.Unlock()
	})
}

// Subscribe registers a new consumer.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{bus: b, ch: make(chan models.ChatEvent, b.buffer)}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Publish stamps and delivers event without blocking.
func (b *Bus) Publish(ctx context.Context, event models.ChatEvent) {
	if event.OccurredAt == 0 {
		event.OccurredAt = b.now().Unix()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.ch <- event:
			continue
		default:
		}
		select {
		case <-sub.ch:
			sub.dropped++
			observability.IncEventDropped()
		default:
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
	observability.IncEventPublished(string(event.Type))
}

// Sink is an external destination such as a message broker.
type Sink interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// RoutingKey maps an event type to a broker routing key.
func RoutingKey(t models.EventType) string {
	return "chat_events." + string(t)
}

// Forward copies events from sub to sink until ctx is done or sub is closed.
func Forward(ctx context.Context, sub *Subscription, sink Sink) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.C():
			if !ok {
				return
			}
			if err := sink.Publish(ctx, RoutingKey(event.Type), event); err != nil {
				log.Printf("[events] forward %s failed: %v", event.Type, err)
			}
		}
	}
}
