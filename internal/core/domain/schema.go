package domain

import (
	"encoding/json"
	"time"
)

// QuarantineDirection records which side of the boundary a payload failed on.
type QuarantineDirection string

const (
	QuarantineInbound  QuarantineDirection = "INBOUND"
	QuarantineOutbound QuarantineDirection = "OUTBOUND"
)

// QuarantinedEvent is a payload that failed schema validation. Quarantine is
// operator-visible storage, not a retry queue; the pipeline keeps moving.
type QuarantinedEvent struct {
	QuarantineID  string              `json:"quarantineID"` // Primary Key (UUID)
	Direction     QuarantineDirection `json:"direction"`
	Topic         string              `json:"topic"`
	EventType     string              `json:"eventType"`
	SchemaVersion int                 `json:"schemaVersion"`
	Payload       json.RawMessage     `json:"payload"`
	Violation     string              `json:"violation"`
	ReceivedAt    time.Time           `json:"receivedAt"`
}
