package models

import "time"

// SagaInstance is the persistence model for the saga_instances table.
// Context is a JSONB column holding the accumulated workflow facts.
type SagaInstance struct {
	CorrelationID string     `db:"correlation_id"`
	WorkflowType  string     `db:"workflow_type"`
	CurrentState  string     `db:"current_state"`
	Context       []byte     `db:"context"` // JSONB
	Version       int64      `db:"version"`
	Deadline      *time.Time `db:"deadline"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}
