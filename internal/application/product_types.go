package application

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"shopify-sales-insights/internal/domain"
	"shopify-sales-insights/internal/infrastructure/metrics"
	"shopify-sales-insights/internal/ports"
)

const (
	// backfillChunkSize is the upstream limit on ids per batched lookup.
	backfillChunkSize = 100

	// backfillConcurrency bounds concurrent lookup chunks. Chunks are
	// mutually independent, unlike order pages.
	backfillConcurrency = 4
)

// ProductTypeResolver resolves product ids to product types through the
// persistent cache, lazily backfilling misses from the Shopify API.
type ProductTypeResolver struct {
	cache  ports.ProductTypeCache
	api    ports.ShopifyAPI
	logger zerolog.Logger
}

// NewProductTypeResolver creates a new product type resolver.
func NewProductTypeResolver(cache ports.ProductTypeCache, api ports.ShopifyAPI, logger zerolog.Logger) *ProductTypeResolver {
	return &ProductTypeResolver{
		cache:  cache,
		api:    api,
		logger: logger,
	}
}

// Resolve returns a product_type per id for every id it can resolve. The
// whole path is best-effort: cache errors and failed backfill chunks degrade
// to missing entries (reported as "unknown" by the caller), never to a request
// failure. Ids that fail to resolve are not cached, so a later request retries
// them; ids resolved to an explicitly empty type are cached as null and not
// re-queried.
func (r *ProductTypeResolver) Resolve(ctx context.Context, shopDomain, accessToken string, ids []int64) map[int64]string {
	resolved := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return resolved
	}

	cached, err := r.cache.Lookup(ctx, shopDomain, ids)
	if err != nil {
		r.logger.Warn().Err(err).Str("shop", shopDomain).Msg("Product type cache lookup failed, backfilling everything")
		cached = map[int64]domain.CachedProductType{}
	}

	var misses []int64
	for _, id := range ids {
		entry, ok := cached[id]
		if !ok {
			misses = append(misses, id)
			continue
		}
		// A stored null means "resolved, has no type": keep it out of
		// the result but do not re-query it.
		if entry.Value != nil && strings.TrimSpace(*entry.Value) != "" {
			resolved[id] = *entry.Value
		}
	}
	if len(misses) == 0 {
		return resolved
	}

	r.logger.Debug().
		Str("shop", shopDomain).
		Int("cached", len(ids)-len(misses)).
		Int("misses", len(misses)).
		Msg("Backfilling product types")

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(backfillConcurrency)

	for start := 0; start < len(misses); start += backfillChunkSize {
		end := start + backfillChunkSize
		if end > len(misses) {
			end = len(misses)
		}
		chunk := misses[start:end]

		g.Go(func() error {
			types, err := r.api.GetProductTypes(ctx, shopDomain, accessToken, chunk)
			if err != nil {
				// A failed chunk leaves its ids unresolved for this
				// request only; the cache stays empty for them so the
				// next request retries.
				metrics.BackfillChunkFailures.Inc()
				r.logger.Warn().
					Err(err).
					Str("shop", shopDomain).
					Int("ids", len(chunk)).
					Msg("Product type backfill chunk failed, skipping")
				return nil
			}

			if err := r.cache.Upsert(ctx, shopDomain, types); err != nil {
				r.logger.Warn().Err(err).Str("shop", shopDomain).Msg("Failed to persist backfilled product types")
			}

			mu.Lock()
			for id, value := range types {
				if value != nil && strings.TrimSpace(*value) != "" {
					resolved[id] = *value
				}
			}
			mu.Unlock()
			return nil
		})
	}

	// Chunk errors are swallowed above; Wait only orders the merges.
	_ = g.Wait()

	return resolved
}
