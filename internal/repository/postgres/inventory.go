package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ecomworks/inventory-service/internal/entity"
	"github.com/ecomworks/inventory-service/internal/repository"
)

const itemColumns = "id, title, brand, description, images, categories, quantity, version, created_at, updated_at"

type inventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository creates an InventoryRepository backed by Postgres.
func NewInventoryRepository(db *sql.DB) repository.InventoryRepository {
	return &inventoryRepository{db: db}
}

func scanItem(row interface{ Scan(...any) error }) (*entity.InventoryItem, error) {
	var (
		id, title, brand, description string
		images, categories            []string
		quantity, version             int
		createdAt, updatedAt          time.Time
	)
	err := row.Scan(&id, &title, &brand, &description, pq.Array(&images), pq.Array(&categories), &quantity, &version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	return entity.Reconstitute(id, title, brand, description, images, categories, quantity, version, createdAt, updatedAt), nil
}

func (r *inventoryRepository) FindByID(ctx context.Context, id string) (*entity.InventoryItem, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM items WHERE id = $1", id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, &repository.NotFoundError{IDs: []string{id}}
	}
	if err != nil {
		return nil, repository.Unavailable("find item", err)
	}
	return item, nil
}

func (r *inventoryRepository) FindByIDs(ctx context.Context, ids []string) ([]*entity.InventoryItem, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+itemColumns+" FROM items WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, repository.Unavailable("find items", err)
	}
	defer rows.Close()

	found := make(map[string]bool, len(ids))
	var items []*entity.InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, repository.Unavailable("scan item", err)
		}
		found[item.ID()] = true
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.Unavailable("find items", err)
	}

	// A partial result is an error condition, not a degraded success.
	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &repository.NotFoundError{IDs: missing}
	}
	return items, nil
}

func (r *inventoryRepository) FindAll(ctx context.Context) ([]*entity.InventoryItem, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+itemColumns+" FROM items ORDER BY title")
	if err != nil {
		return nil, repository.Unavailable("list items", err)
	}
	defer rows.Close()

	var items []*entity.InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, repository.Unavailable("scan item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.Unavailable("list items", err)
	}
	return items, nil
}

func (r *inventoryRepository) CreateItem(ctx context.Context, item *entity.InventoryItem, price entity.Price) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return repository.Unavailable("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO items (id, title, brand, description, images, categories, quantity, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		item.ID(), item.Title(), item.Brand(), item.Description(),
		pq.Array(item.Images()), pq.Array(item.Categories()),
		item.Quantity(), item.Version(), item.CreatedAt(), item.UpdatedAt(),
	)
	if err != nil {
		return repository.Unavailable("insert item", err)
	}

	if err := appendPriceTx(ctx, tx, item.ID(), price); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return repository.Unavailable("commit transaction", err)
	}
	return nil
}

func (r *inventoryRepository) SaveMany(ctx context.Context, items []*entity.InventoryItem, eventID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return repository.Unavailable("begin transaction", err)
	}
	defer tx.Rollback()

	// The processed-event ledger and the quantity updates commit together, so
	// a redelivered message either sees the ledger row or none of the writes.
	res, err := tx.ExecContext(ctx,
		"INSERT INTO processed_events (event_id) VALUES ($1) ON CONFLICT (event_id) DO NOTHING",
		eventID,
	)
	if err != nil {
		return repository.Unavailable("record processed event", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return repository.Unavailable("record processed event", err)
	} else if n == 0 {
		return fmt.Errorf("event %s: %w", eventID, repository.ErrAlreadyProcessed)
	}

	for _, item := range items {
		res, err := tx.ExecContext(ctx,
			`UPDATE items
			 SET title = $1, brand = $2, description = $3, images = $4, categories = $5,
			     quantity = $6, version = version + 1, updated_at = $7
			 WHERE id = $8 AND version = $9`,
			item.Title(), item.Brand(), item.Description(),
			pq.Array(item.Images()), pq.Array(item.Categories()),
			item.Quantity(), item.UpdatedAt(), item.ID(), item.Version(),
		)
		if err != nil {
			return repository.Unavailable("update item", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return repository.Unavailable("update item", err)
		}
		if n == 0 {
			// Version moved under us. Surfaced as transient so the consumer
			// reloads and retries against the new snapshot.
			return repository.Unavailable("update item",
				fmt.Errorf("item %s: concurrent modification (version %d)", item.ID(), item.Version()))
		}
	}

	if err := tx.Commit(); err != nil {
		return repository.Unavailable("commit transaction", err)
	}
	return nil
}

func (r *inventoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM items WHERE id = $1", id)
	if err != nil {
		return repository.Unavailable("delete item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return repository.Unavailable("delete item", err)
	}
	if n == 0 {
		return &repository.NotFoundError{IDs: []string{id}}
	}
	return nil
}

func (r *inventoryRepository) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID,
	).Scan(&exists)
	if err != nil {
		return false, repository.Unavailable("check processed event", err)
	}
	return exists, nil
}
