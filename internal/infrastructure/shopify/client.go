package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"shopify-sales-insights/internal/domain"
	"shopify-sales-insights/internal/infrastructure/metrics"
	"shopify-sales-insights/internal/ports"
)

const (
	// APIVersion is the Shopify Admin API version all requests target.
	APIVersion = "2025-01"

	// pageSize is the upstream maximum page size for listing endpoints.
	pageSize = 250

	// maxPages caps the cursor chain so a malformed or adversarial Link
	// sequence cannot loop forever.
	maxPages = 100

	// productBatchSize is the upstream limit on ids per batched product
	// lookup.
	productBatchSize = 100

	connectTimeout = 20 * time.Second
	requestTimeout = 90 * time.Second
)

// Client is a Shopify Admin REST client implementing ports.ShopifyAPI. The
// order listing endpoint is drained page by page through opaque Link-header
// cursors; listing and batch-lookup calls retry transport failures up to the
// configured budget.
type Client struct {
	httpClient *http.Client
	retry      RetryConfig
	logger     zerolog.Logger

	// overridden in tests to point at a local server
	baseURL  string
	pageCap  int
	pageSize int
}

// NewClient creates a client with the default retry policy.
func NewClient(logger zerolog.Logger) *Client {
	return NewClientWithOptions(DefaultRetryConfig(), logger)
}

// NewClientWithOptions creates a client with an explicit retry policy.
func NewClientWithOptions(retry RetryConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
		retry:    retry,
		logger:   logger,
		pageCap:  maxPages,
		pageSize: pageSize,
	}
}

func (c *Client) shopURL(shopDomain, resource string) string {
	if c.baseURL != "" {
		return fmt.Sprintf("%s/admin/api/%s/%s", c.baseURL, APIVersion, resource)
	}
	return fmt.Sprintf("https://%s/admin/api/%s/%s", shopDomain, APIVersion, resource)
}

// ListAllOrders drains the order listing endpoint. The first page carries the
// full filter; every continuation page carries only limit and page_info —
// Shopify rejects filter parameters on cursor-bearing requests.
func (c *Client) ListAllOrders(ctx context.Context, shopDomain, accessToken string, q ports.OrderQuery) ([]domain.Order, error) {
	params := url.Values{}
	params.Set("status", q.Status)
	params.Set("limit", strconv.Itoa(c.pageSize))
	params.Set("created_at_min", q.CreatedAtMin.Format(time.RFC3339))
	params.Set("created_at_max", q.CreatedAtMax.Format(time.RFC3339))
	params.Set("fields", "id,created_at,total_price,currency,line_items")

	var orders []domain.Order
	for page := 1; ; page++ {
		if page > c.pageCap {
			return nil, fmt.Errorf("%w: more than %d pages for %s", domain.ErrPaginationExhausted, c.pageCap, shopDomain)
		}

		body, header, err := c.get(ctx, "orders", c.shopURL(shopDomain, "orders.json")+"?"+params.Encode(), accessToken)
		if err != nil {
			return nil, err
		}

		var payload struct {
			Orders []domain.Order `json:"orders"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("failed to decode orders page %d: %w", page, err)
		}
		orders = append(orders, payload.Orders...)

		token, ok := nextPageInfo(header.Get("Link"))
		if !ok {
			break
		}

		params = url.Values{}
		params.Set("limit", strconv.Itoa(c.pageSize))
		params.Set("page_info", token)
	}

	c.logger.Debug().
		Str("shop", shopDomain).
		Int("orders", len(orders)).
		Msg("Drained order listing")

	return orders, nil
}

// GetProductTypes resolves up to productBatchSize ids in one batched call.
// Products with an empty product_type map to nil; ids unknown upstream are
// absent from the result.
func (c *Client) GetProductTypes(ctx context.Context, shopDomain, accessToken string, ids []int64) (map[int64]*string, error) {
	if len(ids) == 0 {
		return map[int64]*string{}, nil
	}
	if len(ids) > productBatchSize {
		return nil, fmt.Errorf("product lookup limited to %d ids, got %d", productBatchSize, len(ids))
	}

	joined := make([]string, 0, len(ids))
	for _, id := range ids {
		joined = append(joined, strconv.FormatInt(id, 10))
	}

	params := url.Values{}
	params.Set("ids", strings.Join(joined, ","))
	params.Set("fields", "id,product_type")

	body, _, err := c.get(ctx, "products", c.shopURL(shopDomain, "products.json")+"?"+params.Encode(), accessToken)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Products []struct {
			ID          int64  `json:"id"`
			ProductType string `json:"product_type"`
		} `json:"products"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	types := make(map[int64]*string, len(payload.Products))
	for _, p := range payload.Products {
		if p.ProductType == "" {
			types[p.ID] = nil
			continue
		}
		t := p.ProductType
		types[p.ID] = &t
	}
	return types, nil
}

// GetShopInfo fetches the shop's IANA timezone and currency.
func (c *Client) GetShopInfo(ctx context.Context, shopDomain, accessToken string) (*ports.ShopInfo, error) {
	params := url.Values{}
	params.Set("fields", "iana_timezone,currency")

	body, _, err := c.get(ctx, "shop", c.shopURL(shopDomain, "shop.json")+"?"+params.Encode(), accessToken)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Shop struct {
			IANATimezone string `json:"iana_timezone"`
			Currency     string `json:"currency"`
		} `json:"shop"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode shop: %w", err)
	}

	return &ports.ShopInfo{
		IANATimezone: payload.Shop.IANATimezone,
		Currency:     payload.Shop.Currency,
	}, nil
}

// get performs one authenticated GET, retrying transport failures up to the
// retry budget. A non-2xx status is final and surfaces as *domain.UpstreamError.
func (c *Client) get(ctx context.Context, endpoint, rawURL, accessToken string) ([]byte, http.Header, error) {
	var lastErr error
	backoff := c.retry.InitialBackoff

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("X-Shopify-Access-Token", accessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
			lastErr = err
			c.logger.Warn().
				Err(err).
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Msg("Shopify request failed, retrying")

			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read response body: %w", err)
		}

		metrics.UpstreamRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, nil, &domain.UpstreamError{Status: resp.StatusCode, Body: string(body)}
		}

		return body, resp.Header, nil
	}

	return nil, nil, fmt.Errorf("shopify request failed after %d attempts: %w", c.retry.MaxAttempts, lastErr)
}
