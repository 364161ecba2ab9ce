package repositories

import (
	"context"
	"time"

	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

// ProcessedEventRepository backs consumer-side dedup. Delivery is
// at-least-once, so consumers record every handled event id and skip repeats.
type ProcessedEventRepository interface {
	// MarkProcessed records that consumerGroup handled eventID. It returns false
	// without error when the event was already recorded (duplicate delivery).
	MarkProcessed(ctx context.Context, eventID string, consumerGroup string, now time.Time) (bool, error)

	// PurgeProcessedBefore deletes dedup rows older than cutoff.
	PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// QuarantineRepository stores payloads that failed schema validation. The
// pipeline never blocks on a malformed message; it lands here for an operator.
type QuarantineRepository interface {
	// SaveQuarantined persists a rejected payload with its violation.
	SaveQuarantined(ctx context.Context, q domain.QuarantinedEvent) error

	// ListQuarantined retrieves quarantined payloads, newest first.
	ListQuarantined(ctx context.Context, limit int) ([]domain.QuarantinedEvent, error)
}
