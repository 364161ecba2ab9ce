package dto

import (
	"encoding/json"
	"time"

	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

// OutboxRecordResponse defines the operator view of an outbox record.
type OutboxRecordResponse struct {
	RecordID      string          `json:"recordID"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"eventType"`
	SchemaVersion int             `json:"schemaVersion"`
	Payload       json.RawMessage `json:"payload"`
	TransactionID string          `json:"transactionID,omitempty"`
	CorrelationID string          `json:"correlationID,omitempty"`
	Status        string          `json:"status"`
	AttemptCount  int             `json:"attemptCount"`
	LastError     string          `json:"lastError,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	PublishedAt   *time.Time      `json:"publishedAt,omitempty"`
}

// ToOutboxRecordResponses converts outbox records to their response DTOs.
func ToOutboxRecordResponses(records []domain.OutboxRecord) []OutboxRecordResponse {
	res := make([]OutboxRecordResponse, len(records))
	for i, r := range records {
		res[i] = OutboxRecordResponse{
			RecordID:      r.RecordID,
			Topic:         r.Topic,
			EventType:     r.EventType,
			SchemaVersion: r.SchemaVersion,
			Payload:       r.Payload,
			TransactionID: r.TransactionID,
			CorrelationID: r.CorrelationID,
			Status:        string(r.Status),
			AttemptCount:  r.AttemptCount,
			LastError:     r.LastError,
			CreatedAt:     r.CreatedAt,
			PublishedAt:   r.PublishedAt,
		}
	}
	return res
}

// QuarantinedEventResponse defines the operator view of a quarantined payload.
type QuarantinedEventResponse struct {
	QuarantineID  string          `json:"quarantineID"`
	Direction     string          `json:"direction"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"eventType"`
	SchemaVersion int             `json:"schemaVersion"`
	Payload       json.RawMessage `json:"payload"`
	Violation     string          `json:"violation"`
	ReceivedAt    time.Time       `json:"receivedAt"`
}

// ToQuarantinedEventResponses converts quarantined events to their response DTOs.
func ToQuarantinedEventResponses(events []domain.QuarantinedEvent) []QuarantinedEventResponse {
	res := make([]QuarantinedEventResponse, len(events))
	for i, q := range events {
		res[i] = QuarantinedEventResponse{
			QuarantineID:  q.QuarantineID,
			Direction:     string(q.Direction),
			Topic:         q.Topic,
			EventType:     q.EventType,
			SchemaVersion: q.SchemaVersion,
			Payload:       q.Payload,
			Violation:     q.Violation,
			ReceivedAt:    q.ReceivedAt,
		}
	}
	return res
}
