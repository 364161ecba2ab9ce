package domain

import (
	"encoding/json"
	"time"
)

// OutboxStatus represents a valid outbox record lifecycle state.
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"     // written, awaiting dispatch
	OutboxStatusProcessing OutboxStatus = "PROCESSING"  // claimed by a relay worker under lease
	OutboxStatusPublished  OutboxStatus = "PUBLISHED"   // confirmed on the bus; terminal
	OutboxStatusDeadLetter OutboxStatus = "DEAD_LETTER" // dispatch attempts exhausted, awaiting an operator
)

// IsValid reports whether the status is part of the outbox lifecycle.
func (s OutboxStatus) IsValid() bool {
	switch s {
	case OutboxStatusPending, OutboxStatusProcessing, OutboxStatusPublished, OutboxStatusDeadLetter:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether a transition from s to next is allowed.
func (s OutboxStatus) CanTransitionTo(next OutboxStatus) bool {
	switch s {
	case OutboxStatusPending:
		return next == OutboxStatusProcessing
	case OutboxStatusProcessing:
		return next == OutboxStatusPublished || next == OutboxStatusPending || next == OutboxStatusDeadLetter
	case OutboxStatusDeadLetter:
		// Operator requeue only.
		return next == OutboxStatusPending
	case OutboxStatusPublished:
		return false
	default:
		return false
	}
}

func (s OutboxStatus) String() string {
	return string(s)
}

// OutboxRecord is a fact awaiting publication, written in the same storage
// transaction as the mutation it describes. RecordID doubles as the consumer
// idempotency key; delivery is at-least-once.
type OutboxRecord struct {
	RecordID      string          `json:"recordID"` // Primary Key (UUID); downstream dedup key
	Topic         string          `json:"topic"`
	EventType     string          `json:"eventType"`
	SchemaVersion int             `json:"schemaVersion"`
	Payload       json.RawMessage `json:"payload"`
	TransactionID string          `json:"transactionID,omitempty"` // Ledger fact that produced this record
	CorrelationID string          `json:"correlationID,omitempty"` // Workflow instance, when applicable
	PartitionKey  string          `json:"partitionKey"`            // Ordering scope, usually the account id
	Status        OutboxStatus    `json:"status"`
	AttemptCount  int             `json:"attemptCount"`
	LastError     string          `json:"lastError,omitempty"`
	ClaimedUntil  *time.Time      `json:"claimedUntil,omitempty"` // Relay lease expiry while PROCESSING
	CreatedAt     time.Time       `json:"createdAt"`
	PublishedAt   *time.Time      `json:"publishedAt,omitempty"`
}
