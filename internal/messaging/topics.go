package messaging

import (
	"errors"
	"fmt"

	"github.com/ecomworks/inventory-service/internal/entity"
)

// Outbound topics.
const (
	TopicInventoryCreated      = "inventory.created"
	TopicInventoryUpdated      = "inventory.updated"
	TopicInventoryDeleted      = "inventory.deleted"
	TopicInventoryReserved     = "inventory.reserved"
	TopicInventoryReleased     = "inventory.released"
	TopicInventoryInsufficient = "inventory.insufficient"
)

// Inbound topics.
const (
	TopicOrderCreated   = "order.created"
	TopicOrderCancelled = "order.cancelled"
	TopicOrderUpdated   = "order.updated"
)

// OrderTopics lists every inbound topic the consumer subscribes to.
var OrderTopics = []string{TopicOrderCreated, TopicOrderCancelled, TopicOrderUpdated}

// ErrUnmappedEventType signals a programming error: an event variant was added
// without extending TopicForEvent.
var ErrUnmappedEventType = errors.New("no topic mapped for event type")

// TopicForEvent maps each event variant to its one output topic. The switch is
// exhaustive over the closed union in the entity package; hitting the default
// branch means a new variant was introduced without a mapping, and the
// publisher fails fast rather than dropping the event.
func TopicForEvent(event entity.Event) (string, error) {
	switch event.(type) {
	case entity.ItemCreated:
		return TopicInventoryCreated, nil
	case entity.ItemUpdated:
		return TopicInventoryUpdated, nil
	case entity.ItemDeleted:
		return TopicInventoryDeleted, nil
	case entity.Reserved:
		return TopicInventoryReserved, nil
	case entity.Released:
		return TopicInventoryReleased, nil
	case entity.InsufficientStock:
		return TopicInventoryInsufficient, nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnmappedEventType, event)
	}
}
