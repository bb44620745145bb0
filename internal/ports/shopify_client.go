package ports

import (
	"context"
	"time"

	"shopify-sales-insights/internal/domain"
)

// OrderQuery is the filter window for an order listing. It is sent on the
// first page only; continuation pages carry just the cursor.
type OrderQuery struct {
	CreatedAtMin time.Time
	CreatedAtMax time.Time
	Status       string
}

// ShopInfo is the subset of the shop resource the service consumes.
type ShopInfo struct {
	IANATimezone string
	Currency     string
}

// ShopifyAPI defines the upstream Admin REST operations the aggregation
// pipeline depends on.
type ShopifyAPI interface {
	// ListAllOrders drains the order listing endpoint across all cursor
	// pages. It returns all matching orders or an error; there is no
	// partial-success result.
	ListAllOrders(ctx context.Context, shopDomain, accessToken string, q OrderQuery) ([]domain.Order, error)

	// GetProductTypes resolves product ids to their product_type in one
	// batched call. Products carrying no type map to nil; ids unknown
	// upstream are absent from the result.
	GetProductTypes(ctx context.Context, shopDomain, accessToken string, ids []int64) (map[int64]*string, error)

	// GetShopInfo fetches the shop's timezone and currency.
	GetShopInfo(ctx context.Context, shopDomain, accessToken string) (*ShopInfo, error)
}
