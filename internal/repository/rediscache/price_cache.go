package rediscache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ecomworks/inventory-service/internal/entity"
	"github.com/ecomworks/inventory-service/internal/repository"
)

const priceKeyPrefix = "price:"

type cachedPrice struct {
	Amount         float64   `json:"amount"`
	CurrencyCode   string    `json:"currencyCode"`
	CurrencyName   string    `json:"currencyName"`
	CurrencySymbol string    `json:"currencySymbol"`
	EffectiveAt    time.Time `json:"effectiveAt"`
}

// PriceCachingRepository decorates an InventoryRepository with a read-through
// Redis cache for latest-price lookups. Prices are append-only, so a stale
// entry is benign; the cache key is still dropped on AppendPrice to shorten
// the window. Redis failures fall through to the store and are only logged.
type PriceCachingRepository struct {
	repository.InventoryRepository
	client *redis.Client
	ttl    time.Duration
}

// NewPriceCachingRepository wraps the given repository.
func NewPriceCachingRepository(inner repository.InventoryRepository, client *redis.Client, ttl time.Duration) *PriceCachingRepository {
	return &PriceCachingRepository{InventoryRepository: inner, client: client, ttl: ttl}
}

func priceKey(itemID, currencyCode string) string {
	return priceKeyPrefix + itemID + ":" + currencyCode
}

func (r *PriceCachingRepository) LatestPrice(ctx context.Context, itemID, currencyCode string) (entity.Price, error) {
	key := priceKey(itemID, currencyCode)

	raw, err := r.client.Get(ctx, key).Result()
	if err == nil {
		var cached cachedPrice
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			currency, err := entity.NewCurrency(cached.CurrencyCode, cached.CurrencyName, cached.CurrencySymbol)
			if err == nil {
				return entity.ReconstitutePrice(cached.Amount, currency, cached.EffectiveAt), nil
			}
		}
		// Unreadable entry, treat as a miss.
	} else if err != redis.Nil {
		slog.Warn("Price cache read failed, falling through to store", "key", key, "err", err)
	}

	price, err := r.InventoryRepository.LatestPrice(ctx, itemID, currencyCode)
	if err != nil {
		return entity.Price{}, err
	}

	payload, err := json.Marshal(cachedPrice{
		Amount:         price.Amount(),
		CurrencyCode:   price.Currency().Code(),
		CurrencyName:   price.Currency().Name(),
		CurrencySymbol: price.Currency().Symbol(),
		EffectiveAt:    price.EffectiveAt(),
	})
	if err == nil {
		if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
			slog.Warn("Price cache write failed", "key", key, "err", err)
		}
	}
	return price, nil
}

func (r *PriceCachingRepository) AppendPrice(ctx context.Context, itemID string, price entity.Price) error {
	if err := r.InventoryRepository.AppendPrice(ctx, itemID, price); err != nil {
		return err
	}
	key := priceKey(itemID, price.Currency().Code())
	if err := r.client.Del(ctx, key).Err(); err != nil {
		slog.Warn("Price cache invalidation failed", "key", key, "err", err)
	}
	return nil
}
