package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidSpec is returned when an item cannot be constructed or updated
// because the input violates a business rule. Callers can match it with
// errors.Is.
var ErrInvalidSpec = errors.New("invalid item spec")

// InventoryItem is the aggregate root for a stocked product. Its quantity can
// only be changed through Reserve and Release, which keep it non-negative.
type InventoryItem struct {
	id          string
	title       string
	brand       string
	description string
	images      []string
	categories  []string
	quantity    int
	version     int
	createdAt   time.Time
	updatedAt   time.Time
}

// ItemSpec holds the input for creating a new inventory item.
type ItemSpec struct {
	Title       string
	Brand       string
	Description string
	Images      []string
	Categories  []string
	Quantity    int
}

// NewInventoryItem validates the spec and constructs a fresh item. An invalid
// spec fails construction; a malformed item is never produced.
func NewInventoryItem(spec ItemSpec) (*InventoryItem, error) {
	if strings.TrimSpace(spec.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidSpec)
	}
	if strings.TrimSpace(spec.Brand) == "" {
		return nil, fmt.Errorf("%w: brand is required", ErrInvalidSpec)
	}
	if spec.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity cannot be negative", ErrInvalidSpec)
	}

	now := time.Now().UTC()
	return &InventoryItem{
		id:          uuid.NewString(),
		title:       spec.Title,
		brand:       spec.Brand,
		description: spec.Description,
		images:      append([]string(nil), spec.Images...),
		categories:  append([]string(nil), spec.Categories...),
		quantity:    spec.Quantity,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Reconstitute rebuilds an item from persisted state. It trusts the store and
// performs no validation.
func Reconstitute(id, title, brand, description string, images, categories []string, quantity, version int, createdAt, updatedAt time.Time) *InventoryItem {
	return &InventoryItem{
		id:          id,
		title:       title,
		brand:       brand,
		description: description,
		images:      images,
		categories:  categories,
		quantity:    quantity,
		version:     version,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// Reserve decrements the available quantity. It fails if amount is not
// positive or exceeds the current quantity, leaving the item unchanged.
func (i *InventoryItem) Reserve(amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: reservation amount must be positive", ErrInvalidSpec)
	}
	if i.quantity < amount {
		return fmt.Errorf("insufficient quantity: available %d, requested %d", i.quantity, amount)
	}
	i.quantity -= amount
	i.updatedAt = time.Now().UTC()
	return nil
}

// Release increments the quantity. Releases are compensations and are not
// bounded by a prior reservation.
func (i *InventoryItem) Release(amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: release amount must be positive", ErrInvalidSpec)
	}
	i.quantity += amount
	i.updatedAt = time.Now().UTC()
	return nil
}

// ItemChanges holds optional field updates; nil fields are left untouched.
type ItemChanges struct {
	Title       *string
	Brand       *string
	Description *string
	Images      []string
	Categories  []string
}

// UpdateDetails applies the non-nil changes after validating them.
func (i *InventoryItem) UpdateDetails(changes ItemChanges) error {
	if changes.Title != nil {
		if strings.TrimSpace(*changes.Title) == "" {
			return fmt.Errorf("%w: title cannot be empty", ErrInvalidSpec)
		}
		i.title = *changes.Title
	}
	if changes.Brand != nil {
		if strings.TrimSpace(*changes.Brand) == "" {
			return fmt.Errorf("%w: brand cannot be empty", ErrInvalidSpec)
		}
		i.brand = *changes.Brand
	}
	if changes.Description != nil {
		i.description = *changes.Description
	}
	if changes.Images != nil {
		i.images = append([]string(nil), changes.Images...)
	}
	if changes.Categories != nil {
		i.categories = append([]string(nil), changes.Categories...)
	}
	i.updatedAt = time.Now().UTC()
	return nil
}

// IsAvailable reports whether the requested quantity can be reserved.
func (i *InventoryItem) IsAvailable(requested int) bool {
	return requested > 0 && i.quantity >= requested
}

func (i *InventoryItem) ID() string          { return i.id }
func (i *InventoryItem) Title() string       { return i.title }
func (i *InventoryItem) Brand() string       { return i.brand }
func (i *InventoryItem) Description() string { return i.description }
func (i *InventoryItem) Quantity() int       { return i.quantity }
func (i *InventoryItem) Version() int        { return i.version }
func (i *InventoryItem) CreatedAt() time.Time { return i.createdAt }
func (i *InventoryItem) UpdatedAt() time.Time { return i.updatedAt }

// Images returns a copy of the ordered image references.
func (i *InventoryItem) Images() []string {
	return append([]string(nil), i.images...)
}

// Categories returns a copy of the category labels.
func (i *InventoryItem) Categories() []string {
	return append([]string(nil), i.categories...)
}
