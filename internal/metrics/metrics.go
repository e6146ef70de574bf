// Package metrics provides Prometheus metrics for the market history
// collector. Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mkt_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mkt_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Collection Metrics
	PagesFetchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mkt_pages_fetched_total",
			Help: "Total number of market history pages fetched",
		},
	)

	ListingsRecordedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mkt_listings_recorded_total",
			Help: "Total number of listings persisted",
		},
	)

	SyncRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mkt_sync_retries_total",
			Help: "Number of transient page failures retried",
		},
	)

	SyncErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mkt_sync_errors_total",
			Help: "Collection pass failures by kind",
		},
		[]string{"kind"},
	)

	SyncPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mkt_sync_pass_duration_seconds",
			Help:    "Time taken by one collection pass",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
	)

	SyncProgressStep = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mkt_sync_progress_step",
			Help: "Pages completed in the current pass",
		},
	)

	SyncProgressTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mkt_sync_progress_total",
			Help: "Estimated pages in the current pass",
		},
	)

	// Database Metrics
	ListingsInDatabase = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mkt_listings_in_database",
			Help: "Number of listings currently stored",
		},
	)

	WalletTransactionsInDatabase = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mkt_wallet_transactions_in_database",
			Help: "Number of wallet transactions currently stored",
		},
	)

	// Asset Cache Metrics
	AssetCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mkt_asset_cache_hits_total",
			Help: "Asset metadata cache hit count",
		},
	)

	AssetCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mkt_asset_cache_misses_total",
			Help: "Asset metadata cache miss count",
		},
	)
)

// UpdateCollectionMetrics refreshes the database gauges.
func UpdateCollectionMetrics(db *gorm.DB) {
	var listings int64
	if err := db.Table("listings").Count(&listings).Error; err == nil {
		ListingsInDatabase.Set(float64(listings))
	}

	var transactions int64
	if err := db.Table("account_transactions").Count(&transactions).Error; err == nil {
		WalletTransactionsInDatabase.Set(float64(transactions))
	}
}
