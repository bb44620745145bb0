// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpstreamRequests counts calls to the Shopify Admin API by endpoint
	// and response status ("error" for transport failures).
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopify_upstream_requests_total",
		Help: "Shopify Admin API requests by endpoint and status.",
	}, []string{"endpoint", "status"})

	// ReportDuration observes end-to-end sales report generation time.
	ReportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sales_report_duration_seconds",
		Help:    "Daily sales report generation duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"group_by"})

	// BackfillChunkFailures counts product-type lookup chunks that failed
	// and were skipped for the request.
	BackfillChunkFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "product_type_backfill_chunk_failures_total",
		Help: "Product-type backfill chunks that failed and were skipped.",
	})
)
