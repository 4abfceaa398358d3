// Package broker implements the RabbitMQ adapter: consuming from the
// primary queue, acknowledging/rejecting, and republishing terminal
// failures to the dead-letter queue.
package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iamprecieee/distributed-notification-system/internal/config"
	"github.com/iamprecieee/distributed-notification-system/internal/domain/message"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Delivery is one message read off the primary queue, tagged for
// acknowledgement.
type Delivery struct {
	Tag  uint64
	Body []byte

	raw amqp.Delivery
}

// Broker owns a channel to the shared connection and the worker's queue
// topology.
type Broker struct {
	conn          *amqp.Connection
	channel       *amqp.Channel
	pushQueue     string
	failedQueue   string
	prefetchCount int
	logger        zerolog.Logger
}

// New opens a dedicated channel on the shared connection, declares both
// queues durable, and sets the configured prefetch count on that channel.
func New(conn *amqp.Connection, cfg *config.Config, logger zerolog.Logger) (*Broker, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("broker: failed to open channel: %w", err)
	}

	b := &Broker{
		conn:          conn,
		channel:       ch,
		pushQueue:     cfg.RabbitMQ.PushQueueName,
		failedQueue:   cfg.RabbitMQ.FailedQueue,
		prefetchCount: cfg.RabbitMQ.PrefetchCount,
		logger:        logger.With().Str("component", "broker").Logger(),
	}

	if err := b.setupTopology(); err != nil {
		return nil, err
	}

	return b, nil
}

func (b *Broker) setupTopology() error {
	if err := b.channel.Qos(b.prefetchCount, 0, false); err != nil {
		return fmt.Errorf("broker: failed to set qos: %w", err)
	}

	if _, err := b.channel.QueueDeclare(b.pushQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("broker: failed to declare push queue %s: %w", b.pushQueue, err)
	}

	if _, err := b.channel.QueueDeclare(b.failedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("broker: failed to declare failed queue %s: %w", b.failedQueue, err)
	}

	b.logger.Info().Str("push_queue", b.pushQueue).Str("failed_queue", b.failedQueue).Msg("topology ready")
	return nil
}

// CreateConsumer yields a channel of deliveries from the push queue.
// Callers consume it until the channel closes (broker connection lost or
// shutdown), at which point the dispatcher stops accepting new work but
// lets in-flight tasks complete.
func (b *Broker) CreateConsumer(ctx context.Context) (<-chan Delivery, error) {
	msgs, err := b.channel.ConsumeWithContext(
		ctx,
		b.pushQueue,
		"push-worker",
		false, // autoAck: manual ack/reject only
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("broker: failed to create consumer: %w", err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for d := range msgs {
			select {
			case out <- Delivery{Tag: d.DeliveryTag, Body: d.Body, raw: d}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Ack acknowledges a successfully processed delivery.
func (b *Broker) Ack(d Delivery) error {
	return d.raw.Ack(false)
}

// Reject rejects a delivery, optionally requeueing it.
func (b *Broker) Reject(d Delivery, requeue bool) error {
	return d.raw.Reject(requeue)
}

// PublishToDLQ JSON-serializes msg and publishes it to the failed queue
// with persistent delivery mode, routed by the default exchange.
func (b *Broker) PublishToDLQ(ctx context.Context, msg message.DlqMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("broker: failed to marshal dlq message: %w", err)
	}

	return b.channel.PublishWithContext(ctx, "", b.failedQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         payload,
		DeliveryMode: amqp.Persistent,
	})
}

// Close closes the channel. The connection is managed by the caller's
// lifecycle hook.
func (b *Broker) Close() error {
	return b.channel.Close()
}
