package domain

// Order is a Shopify order as returned by the Admin REST listing endpoint.
// Orders are transient: they exist only for the duration of one aggregation
// request and are never persisted.
type Order struct {
	ID int64 `json:"id"`
	// CreatedAt is kept in the upstream ISO-8601 form and parsed per record
	// during aggregation, so one malformed timestamp skips one order instead
	// of failing the fetch.
	CreatedAt  string     `json:"created_at"`
	TotalPrice string     `json:"total_price"`
	Currency   string     `json:"currency"`
	LineItems  []LineItem `json:"line_items"`
}

// LineItem is a single line of an order. ProductID is nil for custom or
// deleted products.
type LineItem struct {
	ProductID *int64 `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	SKU       string `json:"sku"`
	Title     string `json:"title"`
}

// ProductIDs returns the distinct product ids referenced by line items across
// the given orders.
func ProductIDs(orders []Order) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, o := range orders {
		for _, li := range o.LineItems {
			if li.ProductID == nil {
				continue
			}
			if _, ok := seen[*li.ProductID]; ok {
				continue
			}
			seen[*li.ProductID] = struct{}{}
			ids = append(ids, *li.ProductID)
		}
	}
	return ids
}
