// Package events defines the bus contract the core publishes and consumes
// through. The core never references a concrete broker; adapters live under
// internal/platform/events.
package events

import (
	"context"

	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

// Handler processes one delivered envelope. Returning an error leaves the
// message unacknowledged so the bus redelivers it; handlers must be
// idempotent on envelope.ID.
type Handler func(ctx context.Context, envelope domain.EventEnvelope) error

// EventBus is the transport boundary. Publish must not return before the
// broker has durably accepted the message (publisher confirms or equivalent);
// delivery to subscribers is at-least-once.
type EventBus interface {
	// Publish sends the envelope to a topic. The envelope ID travels as the
	// message id so consumers can dedupe; the partition key scopes ordering.
	Publish(ctx context.Context, topic string, partitionKey string, envelope domain.EventEnvelope) error

	// Subscribe registers a handler for a topic under a named consumer group.
	// Each group receives every message once per delivery attempt.
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler Handler) error

	// Close releases broker resources.
	Close() error
}
