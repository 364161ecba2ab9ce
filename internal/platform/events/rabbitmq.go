package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	portsevents "github.com/wekeza-tech/coopcore/internal/core/ports/events"
)

const (
	// exchangeName is the single topic exchange all domain events flow through.
	// Routing keys are the namespace topics (member, transaction, loan, payment).
	exchangeName = "coopcore.events"

	// confirmTimeout bounds the wait for a broker ack after a publish.
	confirmTimeout = 5 * time.Second

	// confirmBuffer sizes the confirmation channel. Publishes are serialized,
	// so one slot would do; a buffer absorbs broker bursts during reconnects.
	confirmBuffer = 16
)

var errPublishNacked = errors.New("message was nacked by broker")

// RabbitBus is the production adapter: a topic exchange with publisher
// confirms on the outbound side and per-group durable queues with manual
// acknowledgement on the inbound side. Publish does not return success until
// the broker has confirmed the message, which is what lets the relay mark an
// outbox record PUBLISHED.
type RabbitBus struct {
	logger *slog.Logger
	conn   *amqp.Connection

	// publishMu serializes publish+confirm pairs so confirmations match
	// publishes without delivery-tag bookkeeping.
	publishMu sync.Mutex
	pubCh     *amqp.Channel
	confirms  chan amqp.Confirmation

	mu        sync.Mutex
	consumers []*amqp.Channel
	closed    bool
}

// NewRabbitBus connects to the broker, declares the event exchange, and puts
// the publish channel into confirm mode.
func NewRabbitBus(url string, logger *slog.Logger) (*RabbitBus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	pubCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open publish channel: %w", err)
	}

	if err := pubCh.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchangeName, err)
	}

	if err := pubCh.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}
	confirms := pubCh.NotifyPublish(make(chan amqp.Confirmation, confirmBuffer))

	return &RabbitBus{
		logger:   logger,
		conn:     conn,
		pubCh:    pubCh,
		confirms: confirms,
	}, nil
}

var _ portsevents.EventBus = (*RabbitBus)(nil)

// Publish sends the envelope and blocks until the broker confirms it. A nack
// or a confirm timeout is an error; the caller keeps the record unpublished
// and retries on a later cycle.
func (b *RabbitBus) Publish(ctx context.Context, topic string, partitionKey string, envelope domain.EventEnvelope) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope %s: %w", envelope.ID, err)
	}

	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	err = b.pubCh.PublishWithContext(ctx, exchangeName, topic, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     envelope.ID,
		Type:          envelope.Type,
		CorrelationId: envelope.CorrelationID,
		Timestamp:     envelope.Timestamp,
		Headers: amqp.Table{
			"schema_version": int32(envelope.SchemaVersion),
			"partition_key":  partitionKey,
		},
		Body: body,
	})
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", envelope.Type, topic, err)
	}

	return b.waitForConfirm(ctx, envelope.ID)
}

func (b *RabbitBus) waitForConfirm(ctx context.Context, envelopeID string) error {
	timeout := time.NewTimer(confirmTimeout)
	defer timeout.Stop()

	select {
	case confirmed, ok := <-b.confirms:
		if !ok {
			return fmt.Errorf("publish channel closed awaiting confirm for %s", envelopeID)
		}
		if !confirmed.Ack {
			return fmt.Errorf("%w: envelope %s", errPublishNacked, envelopeID)
		}
		return nil
	case <-timeout.C:
		return fmt.Errorf("confirm timed out for envelope %s", envelopeID)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe binds a durable per-group queue to the topic and consumes with
// manual acks. A handler error nacks with requeue, so the broker redelivers;
// handlers dedupe on envelope ID.
func (b *RabbitBus) Subscribe(ctx context.Context, topic string, consumerGroup string, handler portsevents.Handler) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}

	queueName := consumerGroup + "." + topic
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("declare queue %s: %w", queueName, err)
	}
	if err := ch.QueueBind(queueName, topic, exchangeName, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("bind queue %s to %s: %w", queueName, topic, err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		return fmt.Errorf("set qos on %s: %w", queueName, err)
	}

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return fmt.Errorf("consume %s: %w", queueName, err)
	}

	b.mu.Lock()
	b.consumers = append(b.consumers, ch)
	b.mu.Unlock()

	go b.consumeLoop(ctx, queueName, deliveries, handler)
	return nil
}

func (b *RabbitBus) consumeLoop(ctx context.Context, queueName string, deliveries <-chan amqp.Delivery, handler portsevents.Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				b.logger.Info("Consumer channel closed", slog.String("queue", queueName))
				return
			}

			var envelope domain.EventEnvelope
			if err := json.Unmarshal(d.Body, &envelope); err != nil {
				// Not an envelope at all; redelivering cannot fix it.
				b.logger.Error("Dropping undecodable message",
					slog.String("queue", queueName),
					slog.String("message_id", d.MessageId),
					slog.String("error", err.Error()),
				)
				_ = d.Nack(false, false)
				continue
			}

			if err := handler(ctx, envelope); err != nil {
				b.logger.Warn("Handler rejected delivery, requeueing",
					slog.String("queue", queueName),
					slog.String("event_id", envelope.ID),
					slog.String("event_type", envelope.Type),
					slog.String("error", err.Error()),
				)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Close shuts down consumer channels, the publish channel, and the connection.
func (b *RabbitBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	consumers := b.consumers
	b.mu.Unlock()

	for _, ch := range consumers {
		_ = ch.Close()
	}
	_ = b.pubCh.Close()
	return b.conn.Close()
}
