package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ecomworks/inventory-service/internal/entity"
	"github.com/ecomworks/inventory-service/internal/messaging"
	"github.com/ecomworks/inventory-service/internal/repository"
)

// DefaultReleaseReason is used when a release line does not carry one.
const DefaultReleaseReason = "order_cancelled"

// InventoryService orchestrates the command pipelines: load items, run the
// domain logic, persist transactionally, then emit events. Event publishing
// happens after the commit and never rolls it back; a failed publish is
// logged, not propagated.
type InventoryService struct {
	repo      repository.InventoryRepository
	publisher messaging.EventPublisher
}

func NewInventoryService(repo repository.InventoryRepository, publisher messaging.EventPublisher) *InventoryService {
	return &InventoryService{repo: repo, publisher: publisher}
}

// ItemView is the read model returned to callers.
type ItemView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Brand       string    `json:"brand"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
	Categories  []string  `json:"categories"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func viewOf(item *entity.InventoryItem) ItemView {
	return ItemView{
		ID:          item.ID(),
		Title:       item.Title(),
		Brand:       item.Brand(),
		Description: item.Description(),
		Images:      item.Images(),
		Categories:  item.Categories(),
		Quantity:    item.Quantity(),
		CreatedAt:   item.CreatedAt(),
		UpdatedAt:   item.UpdatedAt(),
	}
}

// PriceView is the read model for a price record.
type PriceView struct {
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Symbol      string    `json:"symbol"`
	EffectiveAt time.Time `json:"effective_at"`
}

// CreateItemSpec is the input for CreateItem.
type CreateItemSpec struct {
	Title       string   `json:"title"`
	Brand       string   `json:"brand"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Categories  []string `json:"categories"`
	Quantity    int      `json:"quantity"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
}

func currencyFromCode(code string) (entity.Currency, error) {
	switch code {
	case "", entity.USD.Code():
		return entity.USD, nil
	case entity.EUR.Code():
		return entity.EUR, nil
	case entity.GBP.Code():
		return entity.GBP, nil
	default:
		return entity.NewCurrency(code, code, "")
	}
}

// CreateItem validates the spec, persists the item with its initial price in
// one transaction and emits ItemCreated.
func (s *InventoryService) CreateItem(ctx context.Context, spec CreateItemSpec) (ItemView, error) {
	item, err := entity.NewInventoryItem(entity.ItemSpec{
		Title:       spec.Title,
		Brand:       spec.Brand,
		Description: spec.Description,
		Images:      spec.Images,
		Categories:  spec.Categories,
		Quantity:    spec.Quantity,
	})
	if err != nil {
		return ItemView{}, err
	}

	currency, err := currencyFromCode(spec.Currency)
	if err != nil {
		return ItemView{}, err
	}
	price, err := entity.NewPrice(spec.Price, currency)
	if err != nil {
		return ItemView{}, err
	}

	if err := s.repo.CreateItem(ctx, item, price); err != nil {
		return ItemView{}, err
	}

	s.emit(ctx, entity.ItemCreated{
		ItemID:     item.ID(),
		Title:      item.Title(),
		Brand:      item.Brand(),
		Quantity:   item.Quantity(),
		OccurredAt: time.Now().UTC(),
	})

	return viewOf(item), nil
}

// ReserveItems runs the all-or-nothing reservation pipeline. The request is
// idempotent on EventID: a redelivered request decrements stock exactly once.
// A validation shortfall fails the use case with ReservationRejectedError and
// emits a single InsufficientStock event carrying the aggregated totals.
func (s *InventoryService) ReserveItems(ctx context.Context, req entity.ReservationRequest) error {
	if len(req.Lines) == 0 {
		return fmt.Errorf("%w: reservation has no lines", entity.ErrInvalidSpec)
	}
	if req.EventID == "" {
		req.EventID = uuid.NewString()
	}

	processed, err := s.repo.IsProcessed(ctx, req.EventID)
	if err != nil {
		return err
	}
	if processed {
		slog.Info("Skipping already-processed reservation", "event_id", req.EventID)
		return nil
	}

	// Duplicate product lines collapse last-wins, so application and the
	// emitted events agree on one quantity per product.
	lines := entity.CoalesceReservationLines(req.Lines)

	ids := productIDs(len(lines), func(i int) string { return lines[i].ProductID })
	items, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	snapshot := itemsByID(items)

	if err := entity.ApplyReservation(snapshot, lines); err != nil {
		var rejected *entity.ReservationRejectedError
		if errors.As(err, &rejected) {
			requested, available := rejected.Totals()
			s.emit(ctx, entity.InsufficientStock{
				UserID:     req.UserID,
				Requested:  requested,
				Available:  available,
				Failures:   rejected.Failures,
				OccurredAt: time.Now().UTC(),
			})
		}
		return err
	}

	if err := s.repo.SaveMany(ctx, items, req.EventID); err != nil {
		if errors.Is(err, repository.ErrAlreadyProcessed) {
			slog.Info("Reservation already applied, skipping", "event_id", req.EventID)
			return nil
		}
		return err
	}

	events := make([]entity.Event, 0, len(lines))
	now := time.Now().UTC()
	for _, line := range lines {
		events = append(events, entity.Reserved{
			ItemID:     line.ProductID,
			Quantity:   line.Quantity,
			UserID:     req.UserID,
			OccurredAt: now,
		})
	}
	s.emitAll(ctx, events)
	return nil
}

// ReleaseItems credits stock back, one Released event per line. The reason
// defaults to "order_cancelled" when absent. Idempotent on EventID.
func (s *InventoryService) ReleaseItems(ctx context.Context, req entity.ReleaseRequest) error {
	if len(req.Lines) == 0 {
		return fmt.Errorf("%w: release has no lines", entity.ErrInvalidSpec)
	}
	if req.EventID == "" {
		req.EventID = uuid.NewString()
	}

	processed, err := s.repo.IsProcessed(ctx, req.EventID)
	if err != nil {
		return err
	}
	if processed {
		slog.Info("Skipping already-processed release", "event_id", req.EventID)
		return nil
	}

	lines := entity.CoalesceReleaseLines(req.Lines)

	ids := productIDs(len(lines), func(i int) string { return lines[i].ProductID })
	items, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}

	if err := entity.ApplyRelease(itemsByID(items), lines); err != nil {
		return err
	}

	if err := s.repo.SaveMany(ctx, items, req.EventID); err != nil {
		if errors.Is(err, repository.ErrAlreadyProcessed) {
			slog.Info("Release already applied, skipping", "event_id", req.EventID)
			return nil
		}
		return err
	}

	events := make([]entity.Event, 0, len(lines))
	now := time.Now().UTC()
	for _, line := range lines {
		reason := line.Reason
		if reason == "" {
			reason = DefaultReleaseReason
		}
		events = append(events, entity.Released{
			ItemID:     line.ProductID,
			Quantity:   line.Quantity,
			Reason:     reason,
			OccurredAt: now,
		})
	}
	s.emitAll(ctx, events)
	return nil
}

// UpdateItem applies the given detail changes and emits ItemUpdated.
func (s *InventoryService) UpdateItem(ctx context.Context, id string, changes entity.ItemChanges) (ItemView, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ItemView{}, err
	}
	if err := item.UpdateDetails(changes); err != nil {
		return ItemView{}, err
	}
	if err := s.repo.SaveMany(ctx, []*entity.InventoryItem{item}, uuid.NewString()); err != nil {
		return ItemView{}, err
	}

	s.emit(ctx, entity.ItemUpdated{
		ItemID:     item.ID(),
		Changes:    changedFields(changes),
		OccurredAt: time.Now().UTC(),
	})
	return viewOf(item), nil
}

// DeleteItem removes the item and emits ItemDeleted.
func (s *InventoryService) DeleteItem(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.emit(ctx, entity.ItemDeleted{ItemID: id, OccurredAt: time.Now().UTC()})
	return nil
}

func (s *InventoryService) GetItem(ctx context.Context, id string) (ItemView, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ItemView{}, err
	}
	return viewOf(item), nil
}

func (s *InventoryService) ListItems(ctx context.Context) ([]ItemView, error) {
	items, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]ItemView, len(items))
	for i, item := range items {
		views[i] = viewOf(item)
	}
	return views, nil
}

func (s *InventoryService) GetLatestPrice(ctx context.Context, itemID, currencyCode string) (PriceView, error) {
	if currencyCode == "" {
		currencyCode = entity.USD.Code()
	}
	price, err := s.repo.LatestPrice(ctx, itemID, currencyCode)
	if err != nil {
		return PriceView{}, err
	}
	return PriceView{
		Amount:      price.Amount(),
		Currency:    price.Currency().Code(),
		Symbol:      price.Currency().Symbol(),
		EffectiveAt: price.EffectiveAt(),
	}, nil
}

// SetPrice appends a new price record for the item and emits ItemUpdated.
func (s *InventoryService) SetPrice(ctx context.Context, itemID string, amount float64, currencyCode string) error {
	if _, err := s.repo.FindByID(ctx, itemID); err != nil {
		return err
	}
	currency, err := currencyFromCode(currencyCode)
	if err != nil {
		return err
	}
	price, err := entity.NewPrice(amount, currency)
	if err != nil {
		return err
	}
	if err := s.repo.AppendPrice(ctx, itemID, price); err != nil {
		return err
	}

	s.emit(ctx, entity.ItemUpdated{
		ItemID:     itemID,
		Changes:    map[string]any{"price": amount, "currency": currency.Code()},
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

// emit publishes one event, logging failures. Storage is the record of truth;
// events are best-effort notifications.
func (s *InventoryService) emit(ctx context.Context, event entity.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.Error("Failed to publish event", "event_type", event.EventType(), "aggregate_id", event.AggregateID(), "err", err)
	}
}

func (s *InventoryService) emitAll(ctx context.Context, events []entity.Event) {
	if err := s.publisher.PublishAll(ctx, events); err != nil {
		slog.Error("Failed to publish events", "count", len(events), "err", err)
	}
}

func productIDs(n int, id func(int) string) []string {
	seen := make(map[string]bool, n)
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if !seen[id(i)] {
			seen[id(i)] = true
			ids = append(ids, id(i))
		}
	}
	return ids
}

func itemsByID(items []*entity.InventoryItem) map[string]*entity.InventoryItem {
	m := make(map[string]*entity.InventoryItem, len(items))
	for _, item := range items {
		m[item.ID()] = item
	}
	return m
}

func changedFields(changes entity.ItemChanges) map[string]any {
	fields := make(map[string]any)
	if changes.Title != nil {
		fields["title"] = *changes.Title
	}
	if changes.Brand != nil {
		fields["brand"] = *changes.Brand
	}
	if changes.Description != nil {
		fields["description"] = *changes.Description
	}
	if changes.Images != nil {
		fields["images"] = changes.Images
	}
	if changes.Categories != nil {
		fields["categories"] = changes.Categories
	}
	return fields
}
