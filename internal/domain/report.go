package domain

// Grouping modes for the daily sales report.
const (
	GroupByProductType = "product_type"
	GroupByProduct     = "product"
	GroupBySKU         = "sku"
)

// Metrics selectable per report request.
const (
	MetricUnits = "units"
	MetricSales = "sales"
)

// UnknownGroup is the bucket for line items whose grouping key cannot be
// resolved (missing product type, blank SKU, and so on).
const UnknownGroup = "unknown"

// NormalizeGroupBy returns a valid grouping mode, silently falling back to
// product_type for anything unrecognized.
func NormalizeGroupBy(s string) string {
	switch s {
	case GroupByProductType, GroupByProduct, GroupBySKU:
		return s
	default:
		return GroupByProductType
	}
}

// NormalizeMetric returns a valid metric, silently falling back to units.
func NormalizeMetric(s string) string {
	switch s {
	case MetricUnits, MetricSales:
		return s
	default:
		return MetricUnits
	}
}

// ReportRequest carries the parameters of one daily sales aggregation.
// StartDate and EndDate are local calendar dates (YYYY-MM-DD); when empty the
// report defaults to the trailing 14 local days ending today.
type ReportRequest struct {
	Shop      string
	StartDate string
	EndDate   string
	GroupBy   string
	Metric    string
}

// DailyRow is one local calendar day of the report. Groups maps each grouping
// key to the selected metric's value for that day.
type DailyRow struct {
	Date        string             `json:"date"`
	Groups      map[string]float64 `json:"groups"`
	UnitsTotal  int                `json:"units_total"`
	SalesTotal  float64            `json:"sales_total"`
	OrdersTotal int                `json:"orders_total"`
	Total       float64            `json:"total"`
}

// SalesReport is the aggregation output: one row per local calendar day that
// saw at least one order, in ascending date order.
type SalesReport struct {
	Shop     string     `json:"shop"`
	Timezone string     `json:"timezone"`
	Currency string     `json:"currency,omitempty"`
	GroupBy  string     `json:"group_by"`
	Metric   string     `json:"metric"`
	Days     []DailyRow `json:"days"`
}

// CachedProductType is one attribute cache entry. Value is nil when the
// upstream lookup resolved the product but it carries no product type; a
// missing cache entry altogether is reported as a lookup miss, not as a nil
// value.
type CachedProductType struct {
	Value *string
}
