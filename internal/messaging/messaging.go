package messaging

import (
	"context"
	"errors"

	"github.com/ecomworks/inventory-service/internal/entity"
)

// ErrPublishFailed marks a delivery failure or timeout. The broker may have
// persisted the message before the error surfaced, so retrying a failed
// publish can duplicate it; consumers treat duplicates as normal.
var ErrPublishFailed = errors.New("publish failed")

// Message metadata keys.
const (
	MetadataEventType    = "event_type"
	MetadataPartitionKey = "partition_key"
)

// EventPublisher delivers domain events to the broker with at-least-once
// semantics. Publishing is a best-effort notification layer: the store write
// is the record of truth, and a failed publish never rolls it back.
type EventPublisher interface {
	Publish(ctx context.Context, event entity.Event) error

	// PublishAll groups events by destination topic and sends one batch per
	// topic. Within a topic, the argument order of events is preserved.
	PublishAll(ctx context.Context, events []entity.Event) error
}

type correlationIDKey struct{}

// ContextWithCorrelationID stores the correlation id used for envelope
// metadata of outgoing events. The consumer sets it from the inbound message.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext returns the correlation id, or "" if none is set.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}
