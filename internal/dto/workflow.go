package dto

import (
	"encoding/json"
	"time"

	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

// StartWorkflowRequest defines the data needed to start a workflow directly.
// Loan origination normally starts through POST /loans; this endpoint serves
// collaborators driving other workflow types.
type StartWorkflowRequest struct {
	WorkflowType   domain.WorkflowType `json:"workflowType" binding:"required,oneof=LOAN_ORIGINATION"`
	InitialContext map[string]string   `json:"initialContext"`
}

// InjectEventRequest lets collaborators without bus access hand an event to a
// workflow. It travels the same validation and dispatch path as bus traffic.
type InjectEventRequest struct {
	Type          string          `json:"type" binding:"required"`
	SchemaVersion int             `json:"schemaVersion" binding:"required,min=1"`
	Payload       json.RawMessage `json:"payload" binding:"required"`
}

// WorkflowStatusResponse defines the data returned for a workflow instance.
type WorkflowStatusResponse struct {
	CorrelationID string            `json:"correlationID"`
	WorkflowType  string            `json:"workflowType"`
	CurrentState  string            `json:"currentState"`
	Terminal      bool              `json:"terminal"`
	Context       map[string]string `json:"context,omitempty"`
	Version       int64             `json:"version"`
	Deadline      *time.Time        `json:"deadline,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// ToWorkflowStatusResponse converts a domain.SagaInstance to its response DTO.
func ToWorkflowStatusResponse(inst *domain.SagaInstance) WorkflowStatusResponse {
	return WorkflowStatusResponse{
		CorrelationID: inst.CorrelationID,
		WorkflowType:  string(inst.WorkflowType),
		CurrentState:  string(inst.CurrentState),
		Terminal:      inst.CurrentState.IsTerminal(),
		Context:       inst.Context,
		Version:       inst.Version,
		Deadline:      inst.Deadline,
		CreatedAt:     inst.CreatedAt,
		UpdatedAt:     inst.UpdatedAt,
	}
}
