package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/wekeza-tech/coopcore/internal/apperrors"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	portsevents "github.com/wekeza-tech/coopcore/internal/core/ports/events"
	portsrepo "github.com/wekeza-tech/coopcore/internal/core/ports/repositories"
	portssvc "github.com/wekeza-tech/coopcore/internal/core/ports/services"
	"github.com/wekeza-tech/coopcore/internal/middleware"
	"github.com/wekeza-tech/coopcore/internal/utils/backoff"
)

// workflowConsumerGroup names the queue group the coordinator consumes under.
const workflowConsumerGroup = "coopcore.workflow"

// versionConflictRetries bounds inline retries when two deliveries race on
// the same workflow instance. Losing a retried conflict is still safe: the
// event is redelivered or the deadline sweep compensates.
const versionConflictRetries = 3

const versionConflictBackoff = 50 * time.Millisecond

// consumerTopics are the namespaces carrying events the coordinator reacts to.
var consumerTopics = []string{domain.TopicLoan, domain.TopicTransaction, domain.TopicPayment}

// Consumer feeds inbound bus events to the saga coordinator: schema gate
// first, dedup second, transition last.
type Consumer struct {
	bus           portsevents.EventBus
	schemaSvc     portssvc.SchemaValidatorSvc
	sagaSvc       portssvc.SagaCoordinatorSvc
	processedRepo portsrepo.ProcessedEventRepository
	logger        *slog.Logger
}

// NewConsumer creates the inbound event consumer.
func NewConsumer(
	bus portsevents.EventBus,
	schemaSvc portssvc.SchemaValidatorSvc,
	sagaSvc portssvc.SagaCoordinatorSvc,
	processedRepo portsrepo.ProcessedEventRepository,
	logger *slog.Logger,
) *Consumer {
	return &Consumer{
		bus:           bus,
		schemaSvc:     schemaSvc,
		sagaSvc:       sagaSvc,
		processedRepo: processedRepo,
		logger:        logger,
	}
}

// Start subscribes the coordinator's consumer group to every topic it reacts to.
func (c *Consumer) Start(ctx context.Context) error {
	for _, topic := range consumerTopics {
		if err := c.bus.Subscribe(ctx, topic, workflowConsumerGroup, c.handle); err != nil {
			return err
		}
	}
	c.logger.Info("Workflow consumer subscribed",
		slog.String("consumer_group", workflowConsumerGroup),
		slog.Any("topics", consumerTopics),
	)
	return nil
}

// handle processes one delivery. A nil return acknowledges the message; only
// transient infrastructure failures return an error for redelivery.
func (c *Consumer) handle(ctx context.Context, envelope domain.EventEnvelope) error {
	logger := c.logger.With(
		slog.String("event_id", envelope.ID),
		slog.String("event_type", envelope.Type),
		slog.String("correlation_id", envelope.CorrelationID),
	)
	ctx = middleware.WithLogger(ctx, logger)

	// Gate before anything else: a malformed payload is quarantined and
	// acknowledged, never redelivered.
	if err := c.schemaSvc.ValidateInbound(ctx, envelope); err != nil {
		if errors.Is(err, apperrors.ErrSchemaViolation) {
			return nil
		}
		return err
	}

	// Dedup on the envelope id; delivery is at-least-once.
	first, err := c.processedRepo.MarkProcessed(ctx, envelope.ID, workflowConsumerGroup, time.Now().UTC())
	if err != nil {
		return err
	}
	if !first {
		logger.Debug("Skipping duplicate delivery")
		return nil
	}

	// Events without a workflow correlation are facts for other consumers,
	// not transitions.
	if envelope.CorrelationID == "" {
		return nil
	}

	return c.dispatchToWorkflow(ctx, logger, envelope)
}

// dispatchToWorkflow hands the event to the coordinator, retrying inline when
// a concurrent writer wins the version check. A failure after the dedup mark
// is logged and acknowledged: replaying the message would be skipped as a
// duplicate anyway, and the instance's deadline sweep recovers the workflow.
func (c *Consumer) dispatchToWorkflow(ctx context.Context, logger *slog.Logger, envelope domain.EventEnvelope) error {
	var err error
	for attempt := 0; attempt <= versionConflictRetries; attempt++ {
		if attempt > 0 {
			if sleepErr := backoff.SleepWithContext(ctx, backoff.ExponentialWithJitter(versionConflictBackoff, attempt)); sleepErr != nil {
				break
			}
		}

		err = c.sagaSvc.HandleEvent(ctx, envelope.CorrelationID, envelope)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperrors.ErrVersionConflict) {
			break
		}
	}

	logger.Error("Workflow transition failed; relying on deadline sweep",
		slog.String("error", err.Error()),
	)
	return nil
}
