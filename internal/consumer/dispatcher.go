package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/ecomworks/inventory-service/internal/entity"
	"github.com/ecomworks/inventory-service/internal/messaging"
	"github.com/ecomworks/inventory-service/internal/repository"
)

// ErrMalformedPayload marks a payload that can never be processed. Handlers
// return it to send the message straight to the dead-letter topic without
// retrying.
var ErrMalformedPayload = errors.New("malformed payload")

// HandlerFunc processes one well-formed envelope.
type HandlerFunc func(ctx context.Context, env messaging.Envelope) error

// RetryPolicy bounds the retry loop for transient handler failures.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Dispatcher routes inbound messages to handlers by event type. Per message:
// a malformed envelope is dead-lettered immediately, an unregistered type is
// logged and acked, a transient handler failure is retried with backoff up to
// the budget and then dead-lettered, and a domain rejection is acked without
// retry. The offset advances (ack) only after the message reaches a terminal
// state, so processing is at-least-once.
type Dispatcher struct {
	subscriber      message.Subscriber
	deadLetters     message.Publisher
	deadLetterTopic string
	retry           RetryPolicy
	handlers        map[string]HandlerFunc
}

func NewDispatcher(subscriber message.Subscriber, deadLetters message.Publisher, deadLetterTopic string, retry RetryPolicy) *Dispatcher {
	return &Dispatcher{
		subscriber:      subscriber,
		deadLetters:     deadLetters,
		deadLetterTopic: deadLetterTopic,
		retry:           retry,
		handlers:        make(map[string]HandlerFunc),
	}
}

// Register binds an event type to a handler. Registration happens during
// wiring, before Run.
func (d *Dispatcher) Register(eventType string, handler HandlerFunc) {
	d.handlers[eventType] = handler
}

// Run subscribes to every topic and processes messages until ctx is
// cancelled. Messages within one partition are handled in receipt order.
func (d *Dispatcher) Run(ctx context.Context, topics []string) error {
	// Subscribe everything up front: a failure on any topic returns before a
	// single consumer goroutine starts, so no topic is half-consumed.
	subscriptions := make([]<-chan *message.Message, len(topics))
	for i, topic := range topics {
		messages, err := d.subscriber.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
		subscriptions[i] = messages
	}

	var wg sync.WaitGroup
	for i, topic := range topics {
		wg.Add(1)
		go func(topic string, messages <-chan *message.Message) {
			defer wg.Done()
			for msg := range messages {
				d.process(ctx, topic, msg)
			}
			slog.Info("Consumer shutting down", "topic", topic)
		}(topic, subscriptions[i])
	}
	wg.Wait()
	return nil
}

func (d *Dispatcher) process(ctx context.Context, topic string, msg *message.Message) {
	var env messaging.Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		d.deadLetter(topic, msg, fmt.Sprintf("malformed envelope: %v", err))
		return
	}
	if err := env.Validate(); err != nil {
		d.deadLetter(topic, msg, err.Error())
		return
	}

	handler, ok := d.handlers[env.EventType]
	if !ok {
		// Well-formed but unknown: retrying can never help, move on.
		slog.Warn("No handler registered for event type", "event_type", env.EventType, "topic", topic)
		msg.Ack()
		return
	}

	correlationID := env.Metadata.CorrelationID
	if correlationID == "" {
		correlationID = env.EventID
	}
	hctx := messaging.ContextWithCorrelationID(ctx, correlationID)

	operation := func() error {
		err := handler(hctx, env)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrMalformedPayload) || isRejection(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = d.retry.InitialInterval
	policy.MaxInterval = d.retry.MaxInterval
	policy.MaxElapsedTime = 0

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, d.retry.MaxRetries), ctx))
	if err == nil {
		msg.Ack()
		return
	}

	switch {
	case errors.Is(err, ErrMalformedPayload):
		d.deadLetter(topic, msg, err.Error())
	case isRejection(err):
		// A business outcome, not a failure: the use case already emitted the
		// compensating event.
		slog.Info("Message rejected by domain, not retried",
			"event_id", env.EventID, "event_type", env.EventType, "err", err)
		msg.Ack()
	default:
		d.deadLetter(topic, msg, fmt.Sprintf("retry budget exhausted: %v", err))
	}
}

// isRejection reports whether the error is a domain outcome that retrying
// cannot change.
func isRejection(err error) bool {
	var rejected *entity.ReservationRejectedError
	var notFound *repository.NotFoundError
	return errors.As(err, &rejected) ||
		errors.As(err, &notFound) ||
		errors.Is(err, entity.ErrInvalidSpec)
}

// deadLetter moves the message to the dead-letter topic and acks it so the
// partition is not blocked. If the dead-letter publish itself fails the
// message is nacked for redelivery rather than lost.
func (d *Dispatcher) deadLetter(topic string, msg *message.Message, reason string) {
	dead := message.NewMessage(uuid.NewString(), msg.Payload)
	for key, value := range msg.Metadata {
		dead.Metadata.Set(key, value)
	}
	dead.Metadata.Set("dead_letter_reason", reason)
	dead.Metadata.Set("dead_letter_source_topic", topic)
	dead.Metadata.Set("dead_letter_message_uuid", msg.UUID)

	if err := d.deadLetters.Publish(d.deadLetterTopic, dead); err != nil {
		slog.Error("Failed to dead-letter message, nacking for redelivery",
			"topic", topic, "message_uuid", msg.UUID, "err", err)
		msg.Nack()
		return
	}

	slog.Warn("Message dead-lettered", "topic", topic, "message_uuid", msg.UUID, "reason", reason)
	msg.Ack()
}
