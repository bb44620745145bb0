package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopify-sales-insights/internal/domain"
	"shopify-sales-insights/internal/ports"
)

// In-memory fakes for the storage and upstream ports, so aggregation logic is
// exercised without a live database or network.

type fakeShopRepo struct {
	shops map[string]*domain.Shop
}

func (f *fakeShopRepo) SaveShop(_ context.Context, shop *domain.Shop) error {
	f.shops[shop.Domain] = shop
	return nil
}

func (f *fakeShopRepo) GetShop(_ context.Context, shopDomain string) (*domain.Shop, error) {
	return f.shops[shopDomain], nil
}

func (f *fakeShopRepo) DeleteShop(_ context.Context, shopDomain string) error {
	delete(f.shops, shopDomain)
	return nil
}

func (f *fakeShopRepo) CountShops(_ context.Context) (int64, error) {
	return int64(len(f.shops)), nil
}

type fakeTypeCache struct {
	mu      sync.Mutex
	entries map[int64]domain.CachedProductType
	lookups int
	upserts int
}

func newFakeTypeCache() *fakeTypeCache {
	return &fakeTypeCache{entries: make(map[int64]domain.CachedProductType)}
}

func (f *fakeTypeCache) Lookup(_ context.Context, _ string, ids []int64) (map[int64]domain.CachedProductType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	out := make(map[int64]domain.CachedProductType)
	for _, id := range ids {
		if entry, ok := f.entries[id]; ok {
			out[id] = entry
		}
	}
	return out, nil
}

func (f *fakeTypeCache) Upsert(_ context.Context, _ string, types map[int64]*string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	for id, value := range types {
		f.entries[id] = domain.CachedProductType{Value: value}
	}
	return nil
}

func (f *fakeTypeCache) DeleteShop(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = make(map[int64]domain.CachedProductType)
	return nil
}

type fakeShopifyAPI struct {
	mu           sync.Mutex
	orders       []domain.Order
	types        map[int64]*string
	listErr      error
	typesErr     error
	orderCalls   int
	productCalls int
	lastQuery    ports.OrderQuery
}

func (f *fakeShopifyAPI) ListAllOrders(_ context.Context, _, _ string, q ports.OrderQuery) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderCalls++
	f.lastQuery = q
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.orders, nil
}

func (f *fakeShopifyAPI) GetProductTypes(_ context.Context, _, _ string, ids []int64) (map[int64]*string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productCalls++
	if f.typesErr != nil {
		return nil, f.typesErr
	}
	out := make(map[int64]*string)
	for _, id := range ids {
		if value, ok := f.types[id]; ok {
			out[id] = value
		}
	}
	return out, nil
}

func (f *fakeShopifyAPI) GetShopInfo(_ context.Context, _, _ string) (*ports.ShopInfo, error) {
	return &ports.ShopInfo{IANATimezone: "America/New_York", Currency: "USD"}, nil
}

func ptr(s string) *string { return &s }

func pid(id int64) *int64 { return &id }

func fixtureOrders() []domain.Order {
	return []domain.Order{
		{
			// 23:30 UTC is 18:30 New York: buckets to the 10th.
			ID:         1,
			CreatedAt:  "2024-03-10T23:30:00Z",
			TotalPrice: "25.50",
			Currency:   "USD",
			LineItems: []domain.LineItem{
				{ProductID: pid(11), Quantity: 2, Price: "10.00", SKU: "SKU-A", Title: "Tee"},
				{ProductID: pid(22), Quantity: 1, Price: "5.50", SKU: "SKU-B", Title: "Mug"},
			},
		},
		{
			ID:         2,
			CreatedAt:  "2024-03-11T15:00:00-04:00",
			TotalPrice: "30.00",
			Currency:   "USD",
			LineItems: []domain.LineItem{
				{ProductID: pid(11), Quantity: 3, Price: "10.00", SKU: "SKU-A", Title: "Tee"},
			},
		},
		{
			// Malformed timestamp: the whole order is skipped, not fatal.
			ID:         3,
			CreatedAt:  "yesterday-ish",
			TotalPrice: "99.00",
			Currency:   "USD",
			LineItems: []domain.LineItem{
				{ProductID: pid(11), Quantity: 7, Price: "10.00", SKU: "SKU-A", Title: "Tee"},
			},
		},
	}
}

func newTestService(api *fakeShopifyAPI, cache *fakeTypeCache) *ReportService {
	shops := &fakeShopRepo{shops: map[string]*domain.Shop{
		"x.myshopify.com": {
			Domain:       "x.myshopify.com",
			AccessToken:  "shpat_secret1234",
			IANATimezone: "America/New_York",
		},
	}}
	resolver := NewProductTypeResolver(cache, api, zerolog.Nop())
	return NewReportService(shops, api, resolver, zerolog.Nop())
}

func baseRequest() domain.ReportRequest {
	return domain.ReportRequest{
		Shop:      "x.myshopify.com",
		StartDate: "2024-03-10",
		EndDate:   "2024-03-12",
		GroupBy:   domain.GroupByProductType,
		Metric:    domain.MetricUnits,
	}
}

func TestDailySalesAggregatesByLocalDay(t *testing.T) {
	api := &fakeShopifyAPI{
		orders: fixtureOrders(),
		types:  map[int64]*string{11: ptr("Apparel"), 22: nil},
	}
	svc := newTestService(api, newFakeTypeCache())

	report, err := svc.DailySales(context.Background(), baseRequest())
	require.NoError(t, err)

	assert.Equal(t, "America/New_York", report.Timezone)
	assert.Equal(t, "USD", report.Currency)
	assert.Equal(t, domain.GroupByProductType, report.GroupBy)

	require.Len(t, report.Days, 2)

	day1 := report.Days[0]
	assert.Equal(t, "2024-03-10", day1.Date)
	assert.Equal(t, map[string]float64{"Apparel": 2, "unknown": 1}, day1.Groups)
	assert.Equal(t, 3, day1.UnitsTotal)
	assert.Equal(t, 25.5, day1.SalesTotal)
	assert.Equal(t, 1, day1.OrdersTotal)
	assert.Equal(t, 3.0, day1.Total)

	day2 := report.Days[1]
	assert.Equal(t, "2024-03-11", day2.Date)
	assert.Equal(t, map[string]float64{"Apparel": 3}, day2.Groups)
	assert.Equal(t, 30.0, day2.SalesTotal)

	// The malformed order 3 contributed nothing.
	assert.Equal(t, 6, day1.UnitsTotal+day2.UnitsTotal)
}

func TestDailySalesQueryWindowIsLocalMidnightInUTC(t *testing.T) {
	api := &fakeShopifyAPI{orders: nil}
	svc := newTestService(api, newFakeTypeCache())

	_, err := svc.DailySales(context.Background(), baseRequest())
	require.NoError(t, err)

	// 2024-03-10 00:00 EST = 05:00 UTC; 2024-03-12 23:59:59 EDT = 03:59:59 UTC next day.
	assert.Equal(t, "2024-03-10T05:00:00Z", api.lastQuery.CreatedAtMin.Format("2006-01-02T15:04:05Z07:00"))
	assert.Equal(t, "2024-03-13T03:59:59Z", api.lastQuery.CreatedAtMax.Format("2006-01-02T15:04:05Z07:00"))
	assert.Equal(t, "any", api.lastQuery.Status)
}

func TestDailySalesMissingCredential(t *testing.T) {
	api := &fakeShopifyAPI{}
	svc := NewReportService(
		&fakeShopRepo{shops: map[string]*domain.Shop{}},
		api,
		NewProductTypeResolver(newFakeTypeCache(), api, zerolog.Nop()),
		zerolog.Nop(),
	)

	_, err := svc.DailySales(context.Background(), domain.ReportRequest{Shop: "nobody.myshopify.com"})
	assert.True(t, errors.Is(err, domain.ErrMissingCredential))
	assert.Zero(t, api.orderCalls)
	assert.Zero(t, api.productCalls)
}

func TestDailySalesRejectsInvertedRangeBeforeNetwork(t *testing.T) {
	api := &fakeShopifyAPI{orders: fixtureOrders()}
	svc := newTestService(api, newFakeTypeCache())

	req := baseRequest()
	req.StartDate = "2024-03-12"
	req.EndDate = "2024-03-10"

	_, err := svc.DailySales(context.Background(), req)
	assert.True(t, errors.Is(err, domain.ErrBadDateRange))
	assert.Zero(t, api.orderCalls)
}

func TestDailySalesPropagatesUpstreamError(t *testing.T) {
	api := &fakeShopifyAPI{listErr: &domain.UpstreamError{Status: 502, Body: "bad gateway"}}
	svc := newTestService(api, newFakeTypeCache())

	_, err := svc.DailySales(context.Background(), baseRequest())
	var ue *domain.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 502, ue.Status)
}

func TestDailySalesUnparseablePriceCountsUnits(t *testing.T) {
	api := &fakeShopifyAPI{
		orders: []domain.Order{{
			ID:        1,
			CreatedAt: "2024-03-11T12:00:00-04:00",
			Currency:  "USD",
			LineItems: []domain.LineItem{
				{ProductID: pid(11), Quantity: 4, Price: "abc", SKU: "SKU-A", Title: "Tee"},
			},
		}},
		types: map[int64]*string{11: ptr("Apparel")},
	}
	svc := newTestService(api, newFakeTypeCache())

	report, err := svc.DailySales(context.Background(), baseRequest())
	require.NoError(t, err)
	require.Len(t, report.Days, 1)

	assert.Equal(t, 4, report.Days[0].UnitsTotal)
	assert.Equal(t, 0.0, report.Days[0].SalesTotal)
}

func TestDailySalesTotalsConservation(t *testing.T) {
	api := &fakeShopifyAPI{
		orders: fixtureOrders(),
		types:  map[int64]*string{11: ptr("Apparel"), 22: nil},
	}
	svc := newTestService(api, newFakeTypeCache())

	report, err := svc.DailySales(context.Background(), baseRequest())
	require.NoError(t, err)

	var units int
	var sales float64
	for _, day := range report.Days {
		units += day.UnitsTotal
		sales += day.SalesTotal
	}

	// Orders 1 and 2 parse; order 3 is skipped.
	assert.Equal(t, 2+1+3, units)
	assert.InDelta(t, 2*10.0+5.50+3*10.0, sales, 1e-9)
}

func TestDailySalesSalesMetric(t *testing.T) {
	api := &fakeShopifyAPI{
		orders: []domain.Order{{
			ID:        1,
			CreatedAt: "2024-03-11T12:00:00-04:00",
			Currency:  "EUR",
			LineItems: []domain.LineItem{
				{ProductID: pid(11), Quantity: 3, Price: "3.333", SKU: "SKU-A", Title: "Tee"},
			},
		}},
		types: map[int64]*string{11: ptr("Apparel")},
	}
	svc := newTestService(api, newFakeTypeCache())

	req := baseRequest()
	req.Metric = domain.MetricSales

	report, err := svc.DailySales(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, report.Days, 1)

	day := report.Days[0]
	// 3 x 3.333 = 9.999, rounded once at presentation.
	assert.Equal(t, map[string]float64{"Apparel": 10.0}, day.Groups)
	assert.Equal(t, 10.0, day.SalesTotal)
	assert.Equal(t, day.SalesTotal, day.Total)
	assert.Equal(t, "EUR", report.Currency)
}

func TestDailySalesGroupByAndMetricFallBack(t *testing.T) {
	api := &fakeShopifyAPI{
		orders: fixtureOrders(),
		types:  map[int64]*string{11: ptr("Apparel"), 22: nil},
	}
	svc := newTestService(api, newFakeTypeCache())

	req := baseRequest()
	req.GroupBy = "color"
	req.Metric = "profit"

	report, err := svc.DailySales(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.GroupByProductType, report.GroupBy)
	assert.Equal(t, domain.MetricUnits, report.Metric)
}

func TestDailySalesGroupBySKUAndTitle(t *testing.T) {
	api := &fakeShopifyAPI{
		orders: []domain.Order{{
			ID:        1,
			CreatedAt: "2024-03-11T12:00:00-04:00",
			Currency:  "USD",
			LineItems: []domain.LineItem{
				{ProductID: pid(11), Quantity: 2, Price: "10.00", SKU: "SKU-A", Title: "Tee"},
				{ProductID: nil, Quantity: 1, Price: "1.00", SKU: "  ", Title: ""},
			},
		}},
		types: map[int64]*string{11: ptr("Apparel")},
	}

	req := baseRequest()
	req.GroupBy = domain.GroupBySKU

	report, err := newTestService(api, newFakeTypeCache()).DailySales(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"SKU-A": 2, "unknown": 1}, report.Days[0].Groups)

	req.GroupBy = domain.GroupByProduct
	report, err = newTestService(api, newFakeTypeCache()).DailySales(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"Tee": 2, "unknown": 1}, report.Days[0].Groups)
}

func TestDailySalesIdempotent(t *testing.T) {
	api := &fakeShopifyAPI{
		orders: fixtureOrders(),
		types:  map[int64]*string{11: ptr("Apparel"), 22: nil},
	}
	cache := newFakeTypeCache()
	svc := newTestService(api, cache)

	first, err := svc.DailySales(context.Background(), baseRequest())
	require.NoError(t, err)
	second, err := svc.DailySales(context.Background(), baseRequest())
	require.NoError(t, err)

	// Identical inputs and upstream data yield identical rows; the only
	// side effect of the first run is cache population.
	assert.Equal(t, first, second)

	// The second run served product types from the cache.
	assert.Equal(t, 1, api.productCalls)
}
