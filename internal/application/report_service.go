package application

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"shopify-sales-insights/internal/dates"
	"shopify-sales-insights/internal/domain"
	"shopify-sales-insights/internal/infrastructure/metrics"
	"shopify-sales-insights/internal/ports"
)

// ReportService produces the timezone-aware daily sales report. It
// orchestrates the credential store, the paginated order fetch, the
// product-type resolver and the calendar arithmetic in one linear pass.
type ReportService struct {
	shops    ports.ShopRepository
	shopify  ports.ShopifyAPI
	resolver *ProductTypeResolver
	logger   zerolog.Logger
}

// NewReportService creates a new report service.
func NewReportService(
	shops ports.ShopRepository,
	shopify ports.ShopifyAPI,
	resolver *ProductTypeResolver,
	logger zerolog.Logger,
) *ReportService {
	return &ReportService{
		shops:    shops,
		shopify:  shopify,
		resolver: resolver,
		logger:   logger,
	}
}

// dayTotals accumulates one local calendar day. Revenue stays decimal until
// presentation so rounding error never compounds mid-accumulation.
type dayTotals struct {
	units      map[string]int
	revenue    map[string]decimal.Decimal
	unitsTotal int
	salesTotal decimal.Decimal
	orders     int
}

func newDayTotals() *dayTotals {
	return &dayTotals{
		units:   make(map[string]int),
		revenue: make(map[string]decimal.Decimal),
	}
}

// DailySales runs one aggregation request end to end. Invalid group_by and
// metric values fall back silently to their defaults; a missing credential or
// an inverted date range fails before any upstream call; one malformed order
// or line item is skipped, never fatal.
func (s *ReportService) DailySales(ctx context.Context, req domain.ReportRequest) (*domain.SalesReport, error) {
	groupBy := domain.NormalizeGroupBy(req.GroupBy)
	metric := domain.NormalizeMetric(req.Metric)

	timer := prometheus.NewTimer(metrics.ReportDuration.WithLabelValues(groupBy))
	defer timer.ObserveDuration()

	shop, err := s.shops.GetShop(ctx, req.Shop)
	if err != nil {
		return nil, fmt.Errorf("failed to load shop: %w", err)
	}
	if shop == nil || shop.AccessToken == "" {
		return nil, domain.ErrMissingCredential
	}

	loc := dates.Location(shop.Timezone())

	startDate, endDate := req.StartDate, req.EndDate
	if startDate == "" || endDate == "" {
		defaultStart, defaultEnd := dates.DefaultRange(loc)
		if startDate == "" {
			startDate = defaultStart
		}
		if endDate == "" {
			endDate = defaultEnd
		}
	}

	createdMin, createdMax, err := dates.DayBoundsUTC(startDate, endDate, loc)
	if err != nil {
		return nil, err
	}

	orders, err := s.shopify.ListAllOrders(ctx, shop.Domain, shop.AccessToken, ports.OrderQuery{
		Status:       "any",
		CreatedAtMin: createdMin,
		CreatedAtMax: createdMax,
	})
	if err != nil {
		return nil, err
	}

	types := s.resolver.Resolve(ctx, shop.Domain, shop.AccessToken, domain.ProductIDs(orders))

	days := make(map[string]*dayTotals)
	currency := ""

	for _, order := range orders {
		createdAt, err := dates.ParseShopifyTime(order.CreatedAt)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("shop", shop.Domain).
				Int64("order", order.ID).
				Msg("Skipping order with malformed timestamp")
			continue
		}

		day := dates.LocalDay(createdAt, loc)
		totals := days[day]
		if totals == nil {
			totals = newDayTotals()
			days[day] = totals
		}
		totals.orders++

		if currency == "" && order.Currency != "" {
			currency = order.Currency
		}

		for _, item := range order.LineItems {
			price, err := decimal.NewFromString(strings.TrimSpace(item.Price))
			if err != nil {
				s.logger.Warn().
					Str("shop", shop.Domain).
					Int64("order", order.ID).
					Str("price", item.Price).
					Msg("Unparseable line item price, counting as zero revenue")
				price = decimal.Zero
			}

			revenue := price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			key := groupKey(groupBy, item, types)

			totals.units[key] += item.Quantity
			totals.revenue[key] = totals.revenue[key].Add(revenue)
			totals.unitsTotal += item.Quantity
			totals.salesTotal = totals.salesTotal.Add(revenue)
		}
	}

	report := &domain.SalesReport{
		Shop:     shop.Domain,
		Timezone: loc.String(),
		Currency: currency,
		GroupBy:  groupBy,
		Metric:   metric,
		Days:     make([]domain.DailyRow, 0, len(days)),
	}

	orderedDays := make([]string, 0, len(days))
	for day := range days {
		orderedDays = append(orderedDays, day)
	}
	sort.Strings(orderedDays)

	for _, day := range orderedDays {
		totals := days[day]

		groups := make(map[string]float64, len(totals.units))
		for key := range totals.units {
			if metric == domain.MetricSales {
				groups[key] = totals.revenue[key].Round(2).InexactFloat64()
			} else {
				groups[key] = float64(totals.units[key])
			}
		}

		row := domain.DailyRow{
			Date:        day,
			Groups:      groups,
			UnitsTotal:  totals.unitsTotal,
			SalesTotal:  totals.salesTotal.Round(2).InexactFloat64(),
			OrdersTotal: totals.orders,
		}
		if metric == domain.MetricSales {
			row.Total = row.SalesTotal
		} else {
			row.Total = float64(row.UnitsTotal)
		}
		report.Days = append(report.Days, row)
	}

	s.logger.Info().
		Str("shop", shop.Domain).
		Str("start_date", startDate).
		Str("end_date", endDate).
		Str("group_by", groupBy).
		Str("metric", metric).
		Int("orders", len(orders)).
		Int("days", len(report.Days)).
		Msg("Generated daily sales report")

	return report, nil
}

// groupKey picks the grouping key for a line item; blank or unresolvable keys
// land in the "unknown" bucket.
func groupKey(mode string, item domain.LineItem, types map[int64]string) string {
	var key string
	switch mode {
	case domain.GroupByProduct:
		key = item.Title
	case domain.GroupBySKU:
		key = item.SKU
	default:
		if item.ProductID != nil {
			key = types[*item.ProductID]
		}
	}
	if strings.TrimSpace(key) == "" {
		return domain.UnknownGroup
	}
	return key
}
