// Package metrics holds the Prometheus collectors shared by orderly components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "orderly"

// Reorder modes reported by ReordersTotal.
const (
	ModeContiguous = "contiguous"
	ModeSparse     = "sparse"
	ModeNoop       = "noop"
)

var (
	// RequestsTotal counts HTTP requests by route name and status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by route and status code.",
	}, []string{"route", "code"})

	// RequestDuration observes HTTP request latency by route name.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	// ReordersTotal counts applied reorders by mode.
	ReordersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reorders_total",
		Help:      "Reorder submissions applied to the order store, by mode.",
	}, []string{"mode"})

	// RebalancesTotal counts full order key renumberings.
	RebalancesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_rebalances_total",
		Help:      "Full renumberings of the order key space.",
	})

	// ReorderDroppedIDs counts submitted ids dropped as unknown or duplicate.
	ReorderDroppedIDs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reorder_dropped_ids_total",
		Help:      "Ids dropped from reorder submissions as unknown or duplicate.",
	})

	// QueryDuration observes QueryEngine latency.
	QueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "query_duration_seconds",
		Help:      "Time to produce one page of the filtered order.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	})

	// ViewCacheLookups counts filtered view cache lookups by result (hit/miss).
	ViewCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "view_cache_lookups_total",
		Help:      "Filtered view cache lookups, by result.",
	}, []string{"result"})

	// ViewCacheIDs reports the ids held across cached filtered views.
	ViewCacheIDs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "view_cache_ids",
		Help:      "Record ids held across cached filtered views.",
	})

	// SelectionClients reports the number of live client selection buckets.
	SelectionClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "selection_clients",
		Help:      "Client selection buckets currently held.",
	})

	// SelectionEvictions counts client buckets evicted by capacity or TTL.
	SelectionEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "selection_evictions_total",
		Help:      "Client selection buckets evicted by capacity or idle expiry.",
	})
)
