package entity

import "time"

// Event is a domain event: an immutable fact about an aggregate. The set of
// implementations below is closed; the event-to-topic mapping in the messaging
// package switches exhaustively over it.
type Event interface {
	EventType() string
	AggregateID() string
	OccurredOn() time.Time
}

// ItemCreated is emitted when a new inventory item is registered.
type ItemCreated struct {
	ItemID     string    `json:"itemId"`
	Title      string    `json:"title"`
	Brand      string    `json:"brand"`
	Quantity   int       `json:"quantity"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e ItemCreated) EventType() string     { return "ItemCreated" }
func (e ItemCreated) AggregateID() string   { return e.ItemID }
func (e ItemCreated) OccurredOn() time.Time { return e.OccurredAt }

// ItemUpdated is emitted when item details change.
type ItemUpdated struct {
	ItemID     string         `json:"itemId"`
	Changes    map[string]any `json:"changes"`
	OccurredAt time.Time      `json:"occurredAt"`
}

func (e ItemUpdated) EventType() string     { return "ItemUpdated" }
func (e ItemUpdated) AggregateID() string   { return e.ItemID }
func (e ItemUpdated) OccurredOn() time.Time { return e.OccurredAt }

// ItemDeleted is emitted when an item is removed from the catalog.
type ItemDeleted struct {
	ItemID     string    `json:"itemId"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e ItemDeleted) EventType() string     { return "ItemDeleted" }
func (e ItemDeleted) AggregateID() string   { return e.ItemID }
func (e ItemDeleted) OccurredOn() time.Time { return e.OccurredAt }

// Reserved is emitted when stock has been decremented for a user.
type Reserved struct {
	ItemID     string    `json:"itemId"`
	Quantity   int       `json:"quantity"`
	UserID     string    `json:"userId"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e Reserved) EventType() string     { return "Reserved" }
func (e Reserved) AggregateID() string   { return e.ItemID }
func (e Reserved) OccurredOn() time.Time { return e.OccurredAt }

// Released is emitted when stock has been credited back.
type Released struct {
	ItemID     string    `json:"itemId"`
	Quantity   int       `json:"quantity"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e Released) EventType() string     { return "Released" }
func (e Released) AggregateID() string   { return e.ItemID }
func (e Released) OccurredOn() time.Time { return e.OccurredAt }

// InsufficientStock is emitted when a reservation is rejected. Requested and
// Available are the totals aggregated over the failing lines, and Failures
// lists every individual shortfall.
type InsufficientStock struct {
	UserID     string               `json:"userId"`
	Requested  int                  `json:"requested"`
	Available  int                  `json:"available"`
	Failures   []ReservationFailure `json:"failures"`
	OccurredAt time.Time            `json:"occurredAt"`
}

func (e InsufficientStock) EventType() string     { return "InsufficientStock" }
func (e InsufficientStock) AggregateID() string   { return e.UserID }
func (e InsufficientStock) OccurredOn() time.Time { return e.OccurredAt }
