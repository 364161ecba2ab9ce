// Package events holds the concrete broker adapters behind the
// ports/events.EventBus boundary.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wekeza-tech/coopcore/internal/core/domain"
	portsevents "github.com/wekeza-tech/coopcore/internal/core/ports/events"
	"github.com/wekeza-tech/coopcore/internal/utils/backoff"
)

// memoryDeliveryAttempts is how many times a handler is retried before the
// bus gives up on a delivery. The relay treats a Publish error as a failed
// dispatch attempt, so the record stays in the outbox either way.
const memoryDeliveryAttempts = 3

const memoryRetryBackoff = 10 * time.Millisecond

type memorySubscription struct {
	consumerGroup string
	handler       portsevents.Handler
}

// MemoryBus is the single-process adapter: Publish delivers synchronously to
// every subscribed consumer group before returning, which gives tests and
// single-binary deployments the same at-least-once semantics the broker
// adapter provides.
type MemoryBus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[string][]memorySubscription
	closed bool
}

// NewMemoryBus creates an in-process event bus.
func NewMemoryBus(logger *slog.Logger) *MemoryBus {
	return &MemoryBus{
		logger: logger,
		subs:   make(map[string][]memorySubscription),
	}
}

var _ portsevents.EventBus = (*MemoryBus)(nil)

// Publish delivers the envelope to every consumer group subscribed to the
// topic. A handler failure is retried a few times; if a group never accepts
// the delivery, Publish reports the failure so the caller does not consider
// the message published.
func (b *MemoryBus) Publish(ctx context.Context, topic string, partitionKey string, envelope domain.EventEnvelope) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("memory bus is closed")
	}
	subs := make([]memorySubscription, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := b.deliver(ctx, sub, envelope); err != nil {
			return fmt.Errorf("deliver %s to group %s: %w", envelope.Type, sub.consumerGroup, err)
		}
	}
	return nil
}

func (b *MemoryBus) deliver(ctx context.Context, sub memorySubscription, envelope domain.EventEnvelope) error {
	var lastErr error
	for attempt := 0; attempt < memoryDeliveryAttempts; attempt++ {
		if attempt > 0 {
			if err := backoff.SleepWithContext(ctx, backoff.ExponentialWithJitter(memoryRetryBackoff, attempt)); err != nil {
				return err
			}
		}

		lastErr = sub.handler(ctx, envelope)
		if lastErr == nil {
			return nil
		}

		b.logger.Warn("Handler rejected delivery",
			slog.String("event_id", envelope.ID),
			slog.String("event_type", envelope.Type),
			slog.String("consumer_group", sub.consumerGroup),
			slog.Int("attempt", attempt+1),
			slog.String("error", lastErr.Error()),
		)
	}
	return lastErr
}

// Subscribe registers a handler for a topic under a consumer group.
func (b *MemoryBus) Subscribe(_ context.Context, topic string, consumerGroup string, handler portsevents.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("memory bus is closed")
	}
	b.subs[topic] = append(b.subs[topic], memorySubscription{
		consumerGroup: consumerGroup,
		handler:       handler,
	})
	return nil
}

// Close stops accepting publishes and subscriptions.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
