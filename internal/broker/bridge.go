package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sevigo/resizer/internal/config"
	"github.com/sevigo/resizer/internal/core"
)

const publishTimeout = 5 * time.Second

// Bridge consumes resize requests from a queue, runs them through the
// dispatcher and publishes the outcome.
type Bridge struct {
	channel    Channel
	dispatcher core.JobDispatcher
	cfg        config.BrokerConfig
	defaults   core.Params
	logger     *slog.Logger
	wg         sync.WaitGroup
}

// NewBridge creates a bridge on channel. Nothing is consumed until Run.
func NewBridge(channel Channel, dispatcher core.JobDispatcher, cfg config.BrokerConfig, defaults core.Params, logger *slog.Logger) *Bridge {
	return &Bridge{
		channel:    channel,
		dispatcher: dispatcher,
		cfg:        cfg,
		defaults:   defaults,
		logger:     logger.With("component", "amqp-bridge"),
	}
}

// Run declares the queues and consumes until ctx is cancelled or the
// delivery channel closes. It waits for in-flight requests before returning.
func (b *Bridge) Run(ctx context.Context) error {
	for _, name := range []string{b.cfg.RequestQueue, b.cfg.ResponseQueue} {
		if _, err := b.channel.QueueDeclare(
			name,  // name
			false, // durable
			true,  // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
	}

	if err := b.channel.Qos(b.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := b.channel.Consume(
		b.cfg.RequestQueue, // queue
		"",                 // consumer
		false,              // auto-ack
		false,              // exclusive
		false,              // no-local
		false,              // no-wait
		nil,                // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	b.logger.Info("consuming resize requests", "queue", b.cfg.RequestQueue, "prefetch", b.cfg.Prefetch)
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("stopping amqp bridge")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed by broker")
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handle(ctx, d)
			}()
		}
	}
}

func (b *Bridge) handle(ctx context.Context, d amqp.Delivery) {
	var req ResizeRequest
	if err := json.Unmarshal(d.Body, &req); err != nil {
		b.logger.Warn("rejecting malformed resize request", "error", err, "message_id", d.MessageId)
		_ = d.Reject(false)
		return
	}

	job := core.NewJob(req.Image, req.Params(b.defaults))
	logger := b.logger.With("job_id", job.ID, "correlation_id", d.CorrelationId)

	if err := b.dispatcher.Enqueue(ctx, job); err != nil {
		logger.Info("returning request to the queue, worker lane is not accepting jobs", "error", err)
		_ = d.Nack(false, true)
		return
	}

	// A queued job is always resolved by the worker. Wait for it even while
	// the bridge stops, so the message is processed and answered once.
	data, err := job.Reply.Receive(context.WithoutCancel(ctx))
	if errors.Is(err, core.ErrWorkerUnavailable) && ctx.Err() != nil {
		logger.Info("returning request to the queue, worker stopped before processing it")
		_ = d.Nack(false, true)
		return
	}

	resp := ResizeResponse{Succeed: data}
	if err != nil {
		logger.Warn("resize request failed", "error", err)
		resp = ResizeResponse{Failed: err.Error()}
	}

	if err := b.publish(ctx, d, job.ID, resp); err != nil {
		logger.Error("failed to publish resize response", "error", err)
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

func (b *Bridge) publish(ctx context.Context, d amqp.Delivery, jobID string, resp ResizeResponse) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	routingKey := d.ReplyTo
	if routingKey == "" {
		routingKey = b.cfg.ResponseQueue
	}
	correlationID := d.CorrelationId
	if correlationID == "" {
		correlationID = jobID
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	return b.channel.PublishWithContext(
		pubCtx,
		"",         // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: correlationID,
			MessageId:     jobID,
			Timestamp:     time.Now(),
			Body:          body,
		},
	)
}
