package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	portssvc "github.com/wekeza-tech/coopcore/internal/core/ports/services"
)

// eventSchemaVersion is the contract version stamped on every event this
// service emits. Changing a payload shape means registering a new version
// with the schema gate, not bumping this in place.
const eventSchemaVersion = 1

// newOutboxRecord marshals an event payload, runs it through the schema gate,
// and wraps it in a PENDING outbox record. Every outbound event crosses this
// path; a payload the gate rejects never reaches the outbox.
func newOutboxRecord(ctx context.Context, schemaSvc portssvc.SchemaValidatorSvc, eventType string, payload any, transactionID, correlationID, partitionKey string, now time.Time) (domain.OutboxRecord, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return domain.OutboxRecord{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	if err := schemaSvc.ValidateOutbound(ctx, eventType, eventSchemaVersion, raw); err != nil {
		return domain.OutboxRecord{}, err
	}

	return domain.OutboxRecord{
		RecordID:      uuid.NewString(),
		Topic:         domain.TopicForEvent(eventType),
		EventType:     eventType,
		SchemaVersion: eventSchemaVersion,
		Payload:       raw,
		TransactionID: transactionID,
		CorrelationID: correlationID,
		PartitionKey:  partitionKey,
		Status:        domain.OutboxStatusPending,
		CreatedAt:     now,
	}, nil
}
