package services

import (
	"context"
	"encoding/json"

	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

// SchemaValidatorSvc checks event payloads against the registered contract
// version before they cross the boundary in either direction.
type SchemaValidatorSvc interface {
	// ValidateOutbound checks a payload before it is written to the outbox.
	// A failure is returned as ErrSchemaViolation and the payload is quarantined.
	ValidateOutbound(ctx context.Context, eventType string, schemaVersion int, payload json.RawMessage) error

	// ValidateInbound checks an envelope before it reaches the coordinator.
	// A failure quarantines the payload; the message is consumed, not redelivered.
	ValidateInbound(ctx context.Context, envelope domain.EventEnvelope) error
}
