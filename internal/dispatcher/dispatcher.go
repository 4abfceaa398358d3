// Package dispatcher pulls deliveries off the broker and fans them out to
// the processor under a bounded concurrency limit (C9).
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iamprecieee/distributed-notification-system/internal/broker"
	"github.com/iamprecieee/distributed-notification-system/internal/config"
	"github.com/iamprecieee/distributed-notification-system/internal/domain/message"
	"github.com/iamprecieee/distributed-notification-system/internal/domain/procerr"
	"github.com/iamprecieee/distributed-notification-system/internal/processor"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Broker is the subset of broker.Broker the dispatcher needs.
type Broker interface {
	CreateConsumer(ctx context.Context) (<-chan broker.Delivery, error)
	Ack(d broker.Delivery) error
	Reject(d broker.Delivery, requeue bool) error
	PublishToDLQ(ctx context.Context, msg message.DlqMessage) error
}

// Processor is the subset of processor.Processor the dispatcher needs.
type Processor interface {
	Process(ctx context.Context, rawPayload []byte) (processor.Outcome, *procerr.Error)
}

// Dispatcher drives the consume loop: one goroutine per delivery, bounded
// by a weighted semaphore sized to the configured worker concurrency.
type Dispatcher struct {
	broker    Broker
	processor Processor
	sem       *semaphore.Weighted
	logger    zerolog.Logger
	wg        sync.WaitGroup
}

// New creates a Dispatcher with the given concurrency cap.
func New(b Broker, p Processor, cfg config.WorkerConfig, logger zerolog.Logger) *Dispatcher {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Dispatcher{
		broker:    b,
		processor: p,
		sem:       semaphore.NewWeighted(int64(concurrency)),
		logger:    logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Run consumes deliveries until ctx is cancelled or the broker's delivery
// channel closes, then waits for in-flight work to drain before returning.
func (d *Dispatcher) Run(ctx context.Context) error {
	deliveries, err := d.broker.CreateConsumer(ctx)
	if err != nil {
		return fmt.Errorf("dispatcher: failed to start consumer: %w", err)
	}

	for delivery := range deliveries {
		if err := d.sem.Acquire(ctx, 1); err != nil {
			d.logger.Warn().Err(err).Msg("context cancelled while waiting for a worker slot")
			break
		}

		d.wg.Add(1)
		go func(delivery broker.Delivery) {
			defer d.wg.Done()
			defer d.sem.Release(1)
			d.handle(ctx, delivery)
		}(delivery)
	}

	d.logger.Info().Msg("consumer stream closed, waiting for in-flight deliveries to drain")
	d.wg.Wait()
	return nil
}

func (d *Dispatcher) handle(ctx context.Context, delivery broker.Delivery) {
	outcome, procErr := d.processor.Process(ctx, delivery.Body)

	if procErr == nil {
		if err := d.broker.Ack(delivery); err != nil {
			d.logger.Error().Err(err).Msg("failed to ack delivery")
		}
		if outcome.Skipped {
			d.logger.Debug().Msg("acked duplicate delivery")
		}
		return
	}

	log := d.logger.With().Str("kind", string(procErr.Kind)).Logger()
	log.Warn().Err(procErr).Msg("processing failed")

	if procErr.Kind.DLQEligible() && outcome.Message != nil {
		dlqMsg := message.DlqMessage{
			OriginalMessage: *outcome.Message,
			FailureReason:   procErr.Error(),
			FailedAt:        time.Now().UTC().Format(time.RFC3339Nano),
		}
		if err := d.broker.PublishToDLQ(ctx, dlqMsg); err != nil {
			log.Error().Err(err).Msg("failed to publish to dead-letter queue")
		}
	} else {
		log.Warn().Msg("failure not eligible for dead-letter queue, dropping after reject")
	}

	if err := d.broker.Reject(delivery, false); err != nil {
		log.Error().Err(err).Msg("failed to reject delivery")
	}
}
