// Package metrics holds the Prometheus collectors shared by the console.
// Collectors are registered once with the default registry and exposed
// on /metrics by the console router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequests counts backend calls by method, route template and status code.
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reserveease_api_requests_total",
		Help: "Total number of requests sent to the ReserveEase API",
	}, []string{"method", "route", "code"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reserveease_api_request_duration_seconds",
		Help:    "Latency of requests sent to the ReserveEase API",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// BoardMoves counts status moves on the day board by outcome
	// (applied, rolled_back, unconfirmed, superseded, noop).
	BoardMoves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reserveease_board_moves_total",
		Help: "Reservation status moves on the day board by outcome",
	}, []string{"outcome"})

	GuardChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reserveease_session_checks_total",
		Help: "Session guard evaluations by result",
	}, []string{"result"})

	StoreLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reserveease_store_loads_total",
		Help: "Shared data store loads and refreshes by collection and result",
	}, []string{"collection", "result"})

	CachedReservations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reserveease_cached_reservations",
		Help: "Number of reservations held by the shared data store",
	})

	CachedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reserveease_cached_clients",
		Help: "Number of clients held by the shared data store",
	})
)
