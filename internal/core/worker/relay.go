// Package worker holds the background loops: the outbox relay, the inbound
// event consumer, and the workflow deadline sweeper. Each runs a ticker loop
// until its context is cancelled.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/wekeza-tech/coopcore/internal/core/domain"
	portsevents "github.com/wekeza-tech/coopcore/internal/core/ports/events"
	portsrepo "github.com/wekeza-tech/coopcore/internal/core/ports/repositories"
	"github.com/wekeza-tech/coopcore/internal/platform/config"
	"github.com/wekeza-tech/coopcore/internal/utils/backoff"
)

// purgeInterval is how often the relay runs its retention pass. Retention is
// measured in years, so once an hour is plenty.
const purgeInterval = time.Hour

type relayMetrics struct {
	dispatched        metric.Int64Counter
	failed            metric.Int64Counter
	stateUpdateFailed metric.Int64Counter
	cycleLatency      metric.Float64Histogram
	claimed           metric.Int64Gauge
}

func newRelayMetrics() (relayMetrics, error) {
	meter := otel.GetMeterProvider().Meter("coopcore.outbox.relay")

	var (
		m   relayMetrics
		err error
	)

	m.dispatched, err = meter.Int64Counter(
		"outbox.records.dispatched",
		metric.WithDescription("Number of outbox records confirmed on the bus"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return relayMetrics{}, fmt.Errorf("create outbox.records.dispatched counter: %w", err)
	}

	m.failed, err = meter.Int64Counter(
		"outbox.records.failed",
		metric.WithDescription("Number of outbox records that failed to publish"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return relayMetrics{}, fmt.Errorf("create outbox.records.failed counter: %w", err)
	}

	m.stateUpdateFailed, err = meter.Int64Counter(
		"outbox.records.state_update_failed",
		metric.WithDescription("Number of records published but not persisted as published"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return relayMetrics{}, fmt.Errorf("create outbox.records.state_update_failed counter: %w", err)
	}

	m.cycleLatency, err = meter.Float64Histogram(
		"outbox.dispatch.cycle_latency",
		metric.WithDescription("Time taken per dispatch cycle"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return relayMetrics{}, fmt.Errorf("create outbox.dispatch.cycle_latency histogram: %w", err)
	}

	m.claimed, err = meter.Int64Gauge(
		"outbox.records.claimed",
		metric.WithDescription("Number of records claimed in a dispatch cycle"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return relayMetrics{}, fmt.Errorf("create outbox.records.claimed gauge: %w", err)
	}

	return m, nil
}

// Relay drains the outbox onto the bus. Records are claimed under a lease so
// concurrent relay instances never double-publish; a crash mid-cycle just
// lets the lease expire and the next cycle reclaim.
type Relay struct {
	outboxRepo    portsrepo.OutboxRelaySupport
	processedRepo portsrepo.ProcessedEventRepository
	sagaRepo      portsrepo.SagaPurgeSupport
	bus           portsevents.EventBus
	logger        *slog.Logger
	tracer        trace.Tracer
	metrics       relayMetrics

	dispatchInterval    time.Duration
	batchSize           int
	lease               time.Duration
	publishMaxAttempts  int
	publishBackoff      time.Duration
	maxDispatchAttempts int
	retention           time.Duration
}

// NewRelay creates the outbox relay worker.
func NewRelay(
	cfg *config.Config,
	outboxRepo portsrepo.OutboxRelaySupport,
	processedRepo portsrepo.ProcessedEventRepository,
	sagaRepo portsrepo.SagaPurgeSupport,
	bus portsevents.EventBus,
	logger *slog.Logger,
) (*Relay, error) {
	metrics, err := newRelayMetrics()
	if err != nil {
		return nil, err
	}

	return &Relay{
		outboxRepo:          outboxRepo,
		processedRepo:       processedRepo,
		sagaRepo:            sagaRepo,
		bus:                 bus,
		logger:              logger,
		tracer:              otel.GetTracerProvider().Tracer("coopcore.outbox.relay"),
		metrics:             metrics,
		dispatchInterval:    cfg.RelayDispatchInterval,
		batchSize:           cfg.RelayBatchSize,
		lease:               cfg.RelayLease,
		publishMaxAttempts:  cfg.RelayPublishMaxAttempts,
		publishBackoff:      cfg.RelayPublishBackoff,
		maxDispatchAttempts: cfg.RelayMaxDispatchAttempts,
		retention:           cfg.OutboxRetention,
	}, nil
}

// Run loops dispatch cycles until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	r.logger.Info("Outbox relay started",
		slog.Duration("dispatch_interval", r.dispatchInterval),
		slog.Int("batch_size", r.batchSize),
	)
	defer r.logger.Info("Outbox relay stopped")

	ticker := time.NewTicker(r.dispatchInterval)
	defer ticker.Stop()

	purge := time.NewTicker(purgeInterval)
	defer purge.Stop()

	// Drain whatever accumulated before startup.
	r.dispatchCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.dispatchCycle(ctx)
		case <-purge.C:
			r.purgeCycle(ctx)
		}
	}
}

// dispatchCycle claims one batch and publishes each record in order. Publish
// failures return the record to PENDING (or DEAD_LETTER once attempts are
// exhausted); the cycle continues with the remaining records so one bad
// record cannot wedge the queue.
func (r *Relay) dispatchCycle(ctx context.Context) {
	ctx, span := r.tracer.Start(ctx, "outbox.relay.dispatch_cycle")
	defer span.End()

	start := time.Now()

	records, err := r.outboxRepo.ClaimBatch(ctx, r.batchSize, r.lease)
	if err != nil {
		r.logger.Error("Failed to claim outbox batch", slog.String("error", err.Error()))
		span.RecordError(err)
		return
	}
	r.metrics.claimed.Record(ctx, int64(len(records)))
	if len(records) == 0 {
		return
	}

	published := 0
	for _, record := range records {
		if ctx.Err() != nil {
			// Shutdown mid-batch: unclaimed leases expire on their own.
			break
		}
		if r.dispatchRecord(ctx, record) {
			published++
		}
	}

	r.metrics.cycleLatency.Record(ctx, time.Since(start).Seconds())
	span.SetAttributes(
		attribute.Int("outbox.claimed", len(records)),
		attribute.Int("outbox.published", published),
	)
}

// dispatchRecord publishes one record with bounded in-cycle retries and marks
// the outcome. Returns true when the record reached PUBLISHED.
func (r *Relay) dispatchRecord(ctx context.Context, record domain.OutboxRecord) bool {
	envelope := domain.EventEnvelope{
		ID:            record.RecordID,
		Type:          record.EventType,
		SchemaVersion: record.SchemaVersion,
		Timestamp:     record.CreatedAt,
		CorrelationID: record.CorrelationID,
		Payload:       json.RawMessage(record.Payload),
	}

	var publishErr error
	for attempt := 0; attempt < r.publishMaxAttempts; attempt++ {
		if attempt > 0 {
			if err := backoff.SleepWithContext(ctx, backoff.ExponentialWithJitter(r.publishBackoff, attempt)); err != nil {
				publishErr = err
				break
			}
		}

		publishErr = r.bus.Publish(ctx, record.Topic, record.PartitionKey, envelope)
		if publishErr == nil {
			break
		}
	}

	if publishErr != nil {
		r.metrics.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", record.EventType)))
		r.logger.Warn("Outbox publish failed",
			slog.String("record_id", record.RecordID),
			slog.String("event_type", record.EventType),
			slog.Int("attempt_count", record.AttemptCount+1),
			slog.String("error", publishErr.Error()),
		)
		if err := r.outboxRepo.MarkFailed(ctx, record.RecordID, publishErr.Error(), r.maxDispatchAttempts); err != nil {
			r.logger.Error("Failed to record outbox failure",
				slog.String("record_id", record.RecordID),
				slog.String("error", err.Error()),
			)
		}
		return false
	}

	if err := r.outboxRepo.MarkPublished(ctx, record.RecordID, time.Now().UTC()); err != nil {
		// The message is on the bus but the record still says PROCESSING. The
		// lease expires, the record is republished, and consumers dedupe on
		// the envelope id. At-least-once, not at-most-once.
		r.metrics.stateUpdateFailed.Add(ctx, 1)
		r.logger.Error("Published but failed to mark record",
			slog.String("record_id", record.RecordID),
			slog.String("error", err.Error()),
		)
		return false
	}

	r.metrics.dispatched.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", record.EventType)))
	return true
}

// purgeCycle applies the retention window to published records, consumer
// dedup rows, and terminal workflow instances.
func (r *Relay) purgeCycle(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.retention)

	purgedRecords, err := r.outboxRepo.PurgePublishedBefore(ctx, cutoff)
	if err != nil {
		r.logger.Error("Failed to purge published records", slog.String("error", err.Error()))
	}

	purgedDedup, err := r.processedRepo.PurgeProcessedBefore(ctx, cutoff)
	if err != nil {
		r.logger.Error("Failed to purge dedup rows", slog.String("error", err.Error()))
	}

	purgedInstances, err := r.sagaRepo.PurgeTerminalBefore(ctx, cutoff)
	if err != nil {
		r.logger.Error("Failed to purge terminal workflow instances", slog.String("error", err.Error()))
	}

	if purgedRecords+purgedDedup+purgedInstances > 0 {
		r.logger.Info("Retention purge completed",
			slog.Int64("outbox_records", purgedRecords),
			slog.Int64("dedup_rows", purgedDedup),
			slog.Int64("workflow_instances", purgedInstances),
		)
	}
}
