package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/ecomworks/inventory-service/internal/entity"
	"github.com/ecomworks/inventory-service/internal/messaging"
)

// EventPublisher wraps a broker publisher with envelope serialization,
// event-to-topic routing and per-topic batching.
type EventPublisher struct {
	publisher message.Publisher
	timeout   time.Duration
}

// NewEventPublisher creates an EventPublisher. timeout bounds every publish
// call so a slow broker cannot stall a use case.
func NewEventPublisher(publisher message.Publisher, timeout time.Duration) *EventPublisher {
	return &EventPublisher{publisher: publisher, timeout: timeout}
}

// Publish serializes one event and delivers it to its mapped topic.
func (p *EventPublisher) Publish(ctx context.Context, event entity.Event) error {
	topic, err := messaging.TopicForEvent(event)
	if err != nil {
		return err
	}
	msg, err := p.newMessage(ctx, event)
	if err != nil {
		return err
	}
	return p.send(ctx, topic, msg)
}

// PublishAll groups events by destination topic and sends one batch per
// topic, in parallel across topics. Argument order of events sharing a topic
// is preserved within the batch.
func (p *EventPublisher) PublishAll(ctx context.Context, events []entity.Event) error {
	if len(events) == 0 {
		return nil
	}

	var topics []string
	batches := make(map[string][]*message.Message)
	for _, event := range events {
		topic, err := messaging.TopicForEvent(event)
		if err != nil {
			return err
		}
		msg, err := p.newMessage(ctx, event)
		if err != nil {
			return err
		}
		if _, seen := batches[topic]; !seen {
			topics = append(topics, topic)
		}
		batches[topic] = append(batches[topic], msg)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(topics))
	for i, topic := range topics {
		wg.Add(1)
		go func(i int, topic string) {
			defer wg.Done()
			errs[i] = p.send(ctx, topic, batches[topic]...)
		}(i, topic)
	}
	wg.Wait()

	return errors.Join(errs...)
}

func (p *EventPublisher) newMessage(ctx context.Context, event entity.Event) (*message.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}

	correlationID := messaging.CorrelationIDFromContext(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	env := messaging.Envelope{
		EventID:   uuid.NewString(),
		EventType: event.EventType(),
		Timestamp: event.OccurredOn(),
		Payload:   payload,
		Metadata:  messaging.Metadata{CorrelationID: correlationID},
	}
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	msg := message.NewMessage(env.EventID, body)
	msg.Metadata.Set(messaging.MetadataEventType, env.EventType)
	msg.Metadata.Set(messaging.MetadataPartitionKey, event.AggregateID())
	return msg, nil
}

// send publishes with a bounded wait. A publish that times out after the
// broker persisted the message may be retried by the caller; duplicate
// delivery is part of the at-least-once contract.
func (p *EventPublisher) send(ctx context.Context, topic string, msgs ...*message.Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, errors.Join(messaging.ErrPublishFailed, err))
	}

	done := make(chan error, 1)
	go func() {
		done <- p.publisher.Publish(topic, msgs...)
	}()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("publish to %s: %w", topic, errors.Join(messaging.ErrPublishFailed, err))
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", topic, errors.Join(messaging.ErrPublishFailed, ctx.Err()))
	case <-timer.C:
		return fmt.Errorf("publish to %s: timed out after %s: %w", topic, p.timeout, messaging.ErrPublishFailed)
	}
}
