package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ecomworks/inventory-service/internal/entity"
	"github.com/ecomworks/inventory-service/internal/messaging"
)

// Inbound event types emitted by the order service.
const (
	EventTypeOrderCreated   = "OrderCreated"
	EventTypeOrderCancelled = "OrderCancelled"
	EventTypeOrderUpdated   = "OrderUpdated"
)

// InventoryCommands is the slice of the command layer the consumer drives.
type InventoryCommands interface {
	ReserveItems(ctx context.Context, req entity.ReservationRequest) error
	ReleaseItems(ctx context.Context, req entity.ReleaseRequest) error
}

// OrderEventHandler translates inbound order events into inventory commands.
// The source event id becomes the idempotency key of each command, so a
// redelivered order event is applied exactly once.
type OrderEventHandler struct {
	inventory InventoryCommands
}

func NewOrderEventHandler(inventory InventoryCommands) *OrderEventHandler {
	return &OrderEventHandler{inventory: inventory}
}

// Register binds the handler to every order event type on the dispatcher.
func (h *OrderEventHandler) Register(d *Dispatcher) {
	d.Register(EventTypeOrderCreated, h.HandleOrderCreated)
	d.Register(EventTypeOrderCancelled, h.HandleOrderCancelled)
	d.Register(EventTypeOrderUpdated, h.HandleOrderUpdated)
}

type orderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Currency  string `json:"currency,omitempty"`
}

type orderCreatedPayload struct {
	OrderID string      `json:"orderId"`
	UserID  string      `json:"userId"`
	Items   []orderItem `json:"items"`
}

type orderCancelledPayload struct {
	OrderID string      `json:"orderId"`
	UserID  string      `json:"userId"`
	Items   []orderItem `json:"items"`
	Reason  string      `json:"reason,omitempty"`
}

type orderUpdatedPayload struct {
	OrderID       string      `json:"orderId"`
	UserID        string      `json:"userId"`
	Items         []orderItem `json:"items"`
	PreviousItems []orderItem `json:"previousItems,omitempty"`
}

func decodeItems(items []orderItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: order has no items", ErrMalformedPayload)
	}
	for _, item := range items {
		if item.ProductID == "" {
			return fmt.Errorf("%w: item missing productId", ErrMalformedPayload)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %s has non-positive quantity", ErrMalformedPayload, item.ProductID)
		}
	}
	return nil
}

// HandleOrderCreated reserves stock for every line of the new order.
func (h *OrderEventHandler) HandleOrderCreated(ctx context.Context, env messaging.Envelope) error {
	var payload orderCreatedPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload.OrderID == "" || payload.UserID == "" {
		return fmt.Errorf("%w: order missing orderId or userId", ErrMalformedPayload)
	}
	if err := decodeItems(payload.Items); err != nil {
		return err
	}

	slog.Info("Processing OrderCreated", "order_id", payload.OrderID, "items", len(payload.Items))

	lines := make([]entity.ReservationLine, len(payload.Items))
	for i, item := range payload.Items {
		lines[i] = entity.ReservationLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Currency:  item.Currency,
		}
	}

	return h.inventory.ReserveItems(ctx, entity.ReservationRequest{
		EventID: env.EventID,
		UserID:  payload.UserID,
		Lines:   lines,
	})
}

// HandleOrderCancelled releases the stock the order had reserved.
func (h *OrderEventHandler) HandleOrderCancelled(ctx context.Context, env messaging.Envelope) error {
	var payload orderCancelledPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload.OrderID == "" {
		return fmt.Errorf("%w: order missing orderId", ErrMalformedPayload)
	}
	if err := decodeItems(payload.Items); err != nil {
		return err
	}

	slog.Info("Processing OrderCancelled", "order_id", payload.OrderID, "items", len(payload.Items))

	lines := make([]entity.ReleaseLine, len(payload.Items))
	for i, item := range payload.Items {
		lines[i] = entity.ReleaseLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Reason:    payload.Reason,
		}
	}

	return h.inventory.ReleaseItems(ctx, entity.ReleaseRequest{
		EventID: env.EventID,
		UserID:  payload.UserID,
		Lines:   lines,
	})
}

// HandleOrderUpdated adjusts reservations to the order's new quantities.
// The payload restates the full item list together with the previous one;
// grown lines are reserved, shrunk lines are released. Without the previous
// quantities the delta is undefined and the event is skipped.
func (h *OrderEventHandler) HandleOrderUpdated(ctx context.Context, env messaging.Envelope) error {
	var payload orderUpdatedPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload.OrderID == "" {
		return fmt.Errorf("%w: order missing orderId", ErrMalformedPayload)
	}
	// An emptied order releases everything it had reserved, so an empty item
	// list is valid as long as the previous quantities are known.
	if len(payload.Items) == 0 && len(payload.PreviousItems) == 0 {
		return fmt.Errorf("%w: order has no items", ErrMalformedPayload)
	}
	if len(payload.Items) > 0 {
		if err := decodeItems(payload.Items); err != nil {
			return err
		}
	}
	if len(payload.PreviousItems) == 0 {
		slog.Warn("OrderUpdated without previous items, skipping", "order_id", payload.OrderID)
		return nil
	}

	previous := make(map[string]int, len(payload.PreviousItems))
	for _, item := range payload.PreviousItems {
		previous[item.ProductID] += item.Quantity
	}

	var reserves []entity.ReservationLine
	var releases []entity.ReleaseLine
	for _, item := range payload.Items {
		delta := item.Quantity - previous[item.ProductID]
		delete(previous, item.ProductID)
		switch {
		case delta > 0:
			reserves = append(reserves, entity.ReservationLine{
				ProductID: item.ProductID,
				Quantity:  delta,
				Currency:  item.Currency,
			})
		case delta < 0:
			releases = append(releases, entity.ReleaseLine{
				ProductID: item.ProductID,
				Quantity:  -delta,
				Reason:    "order_updated",
			})
		}
	}
	// Lines dropped from the order entirely.
	for productID, quantity := range previous {
		releases = append(releases, entity.ReleaseLine{
			ProductID: productID,
			Quantity:  quantity,
			Reason:    "order_updated",
		})
	}

	slog.Info("Processing OrderUpdated", "order_id", payload.OrderID,
		"reserve_lines", len(reserves), "release_lines", len(releases))

	// Release first so a shrunk-and-grown order frees stock before asking for
	// more. Each half carries its own idempotency key derived from the source
	// event id.
	if len(releases) > 0 {
		err := h.inventory.ReleaseItems(ctx, entity.ReleaseRequest{
			EventID: env.EventID + ":release",
			UserID:  payload.UserID,
			Lines:   releases,
		})
		if err != nil {
			return err
		}
	}
	if len(reserves) > 0 {
		err := h.inventory.ReserveItems(ctx, entity.ReservationRequest{
			EventID: env.EventID + ":reserve",
			UserID:  payload.UserID,
			Lines:   reserves,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
