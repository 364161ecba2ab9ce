package mapping

import (
	"encoding/json"
	"fmt"

	"github.com/wekeza-tech/coopcore/internal/core/domain"
	"github.com/wekeza-tech/coopcore/internal/models"
)

// ToModelSagaInstance converts a domain SagaInstance to a model SagaInstance,
// marshaling the context map into its JSONB column.
func ToModelSagaInstance(d domain.SagaInstance) (models.SagaInstance, error) {
	contextJSON, err := json.Marshal(d.Context)
	if err != nil {
		return models.SagaInstance{}, fmt.Errorf("marshal saga context for %s: %w", d.CorrelationID, err)
	}
	return models.SagaInstance{
		CorrelationID: d.CorrelationID,
		WorkflowType:  string(d.WorkflowType),
		CurrentState:  string(d.CurrentState),
		Context:       contextJSON,
		Version:       d.Version,
		Deadline:      d.Deadline,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}, nil
}

// ToDomainSagaInstance converts a model SagaInstance to a domain SagaInstance.
func ToDomainSagaInstance(m models.SagaInstance) (domain.SagaInstance, error) {
	var context map[string]string
	if len(m.Context) > 0 {
		if err := json.Unmarshal(m.Context, &context); err != nil {
			return domain.SagaInstance{}, fmt.Errorf("unmarshal saga context for %s: %w", m.CorrelationID, err)
		}
	}
	return domain.SagaInstance{
		CorrelationID: m.CorrelationID,
		WorkflowType:  domain.WorkflowType(m.WorkflowType),
		CurrentState:  domain.SagaState(m.CurrentState),
		Context:       context,
		Version:       m.Version,
		Deadline:      m.Deadline,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}, nil
}
