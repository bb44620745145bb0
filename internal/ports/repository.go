package ports

import (
	"context"

	"shopify-sales-insights/internal/domain"
)

// ShopRepository defines the interface for shop credential persistence.
type ShopRepository interface {
	// SaveShop creates or updates the record for shop.Domain.
	SaveShop(ctx context.Context, shop *domain.Shop) error

	// GetShop returns the stored record, or (nil, nil) when none exists.
	GetShop(ctx context.Context, shopDomain string) (*domain.Shop, error)

	// DeleteShop removes the record; deleting an absent shop is not an error.
	DeleteShop(ctx context.Context, shopDomain string) error

	// CountShops returns the number of installed shops (diagnostics only).
	CountShops(ctx context.Context) (int64, error)
}

// ProductTypeCache defines the interface for the persistent product-type
// attribute cache. Entries are owned by the backfill path; the aggregation
// engine only reads.
type ProductTypeCache interface {
	// Lookup returns an entry for every stored id in ids; ids absent from
	// the result map were never resolved (distinct from a stored nil value).
	Lookup(ctx context.Context, shopDomain string, ids []int64) (map[int64]domain.CachedProductType, error)

	// Upsert writes the given values, last write wins per id. A nil value
	// records that the product has no type, so it is not re-queried.
	Upsert(ctx context.Context, shopDomain string, types map[int64]*string) error

	// DeleteShop drops every cached entry for the shop (redaction support).
	DeleteShop(ctx context.Context, shopDomain string) error
}

// SessionStore defines the interface for pending OAuth sessions, keyed by
// state nonce and expired automatically.
type SessionStore interface {
	SaveSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, state string) (*domain.Session, error)
	DeleteSession(ctx context.Context, state string) error
}
