package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/ecomworks/inventory-service/internal/entity"
	"github.com/ecomworks/inventory-service/internal/repository"
)

func (r *inventoryRepository) LatestPrice(ctx context.Context, itemID, currencyCode string) (entity.Price, error) {
	var (
		amount             float64
		code, name, symbol string
		effectiveAt        time.Time
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT amount, currency_code, currency_name, currency_symbol, effective_at
		 FROM prices
		 WHERE item_id = $1 AND currency_code = $2
		 ORDER BY effective_at DESC, id DESC
		 LIMIT 1`,
		itemID, strings.ToUpper(currencyCode),
	).Scan(&amount, &code, &name, &symbol, &effectiveAt)
	if err == sql.ErrNoRows {
		return entity.Price{}, &repository.NotFoundError{IDs: []string{itemID}}
	}
	if err != nil {
		return entity.Price{}, repository.Unavailable("latest price", err)
	}

	currency, err := entity.NewCurrency(strings.TrimSpace(code), name, symbol)
	if err != nil {
		return entity.Price{}, repository.Unavailable("latest price", err)
	}
	return entity.ReconstitutePrice(amount, currency, effectiveAt), nil
}

func (r *inventoryRepository) AppendPrice(ctx context.Context, itemID string, price entity.Price) error {
	if _, err := r.db.ExecContext(ctx, appendPriceQuery,
		itemID, price.Amount(), price.Currency().Code(), price.Currency().Name(), price.Currency().Symbol(), price.EffectiveAt(),
	); err != nil {
		return repository.Unavailable("append price", err)
	}
	return nil
}

const appendPriceQuery = `INSERT INTO prices (item_id, amount, currency_code, currency_name, currency_symbol, effective_at)
	 VALUES ($1, $2, $3, $4, $5, $6)`

func appendPriceTx(ctx context.Context, tx *sql.Tx, itemID string, price entity.Price) error {
	if _, err := tx.ExecContext(ctx, appendPriceQuery,
		itemID, price.Amount(), price.Currency().Code(), price.Currency().Name(), price.Currency().Symbol(), price.EffectiveAt(),
	); err != nil {
		return repository.Unavailable("append price", err)
	}
	return nil
}
