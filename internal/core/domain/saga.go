package domain

import "time"

// WorkflowType names a saga state machine.
type WorkflowType string

const (
	WorkflowLoanOrigination WorkflowType = "LOAN_ORIGINATION"
)

// SagaState is a workflow-specific state name. Terminal states accept no
// further transitions.
type SagaState string

// Loan origination states.
const (
	StateSubmitted          SagaState = "SUBMITTED"
	StateCreditCheckPending SagaState = "CREDIT_CHECK_PENDING"
	StateApproved           SagaState = "APPROVED"
	StateRejected           SagaState = "REJECTED"
	StateDisbursed          SagaState = "DISBURSED"
	StateFailed             SagaState = "FAILED"
)

// IsTerminal reports whether the state ends its workflow.
func (s SagaState) IsTerminal() bool {
	switch s {
	case StateRejected, StateDisbursed, StateFailed:
		return true
	default:
		return false
	}
}

// TerminalStates lists every state that ends a workflow. The sweep and purge
// queries exclude or target these.
func TerminalStates() []SagaState {
	return []SagaState{StateRejected, StateDisbursed, StateFailed}
}

// SagaInstance is one run of a workflow, keyed by correlation id. Version
// backs the optimistic concurrency check; every consumed event bumps it.
type SagaInstance struct {
	CorrelationID string            `json:"correlationID"` // Primary Key (UUID)
	WorkflowType  WorkflowType      `json:"workflowType"`
	CurrentState  SagaState         `json:"currentState"`
	Context       map[string]string `json:"context"` // Facts accumulated along the way
	Version       int64             `json:"version"`
	Deadline      *time.Time        `json:"deadline,omitempty"` // Unset once terminal
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// ContextValue returns the named fact, or "" when absent.
func (s *SagaInstance) ContextValue(key string) string {
	if s.Context == nil {
		return ""
	}
	return s.Context[key]
}
