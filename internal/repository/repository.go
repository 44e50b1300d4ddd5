package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ecomworks/inventory-service/internal/entity"
)

// ErrStorageUnavailable marks a transient storage failure. The caller owns the
// retry policy.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrAlreadyProcessed is returned by SaveMany when the given event id has been
// applied before. Redelivered messages short-circuit here instead of mutating
// stock twice.
var ErrAlreadyProcessed = errors.New("event already processed")

// NotFoundError lists the ids that were requested but do not exist. A partial
// result from FindByIDs is an error, not a degraded success.
type NotFoundError struct {
	IDs []string
}

func (e *NotFoundError) Error() string {
	return "items not found: " + strings.Join(e.IDs, ", ")
}

// InventoryRepository is the durable store for items and price history. All
// writes are transactional: a failing batch commits nothing.
type InventoryRepository interface {
	FindByID(ctx context.Context, id string) (*entity.InventoryItem, error)
	FindByIDs(ctx context.Context, ids []string) ([]*entity.InventoryItem, error)
	FindAll(ctx context.Context) ([]*entity.InventoryItem, error)

	// CreateItem persists a new item and its initial price record in one
	// transaction.
	CreateItem(ctx context.Context, item *entity.InventoryItem, price entity.Price) error

	// SaveMany persists the full batch in one transaction with an optimistic
	// version check per item, and records eventID in the processed-event
	// ledger. It returns ErrAlreadyProcessed when eventID was applied before.
	SaveMany(ctx context.Context, items []*entity.InventoryItem, eventID string) error

	Delete(ctx context.Context, id string) error

	// LatestPrice returns the most recent price record for the currency.
	LatestPrice(ctx context.Context, itemID, currencyCode string) (entity.Price, error)

	// AppendPrice adds a new immutable price record; history is never edited.
	AppendPrice(ctx context.Context, itemID string, price entity.Price) error

	// IsProcessed reports whether the event id is already in the ledger.
	IsProcessed(ctx context.Context, eventID string) (bool, error)
}

// Unavailable wraps a driver error so that errors.Is(err, ErrStorageUnavailable)
// holds while the original cause stays inspectable.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStorageUnavailable, err))
}
