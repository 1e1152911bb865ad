// Package metrics declares the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "geomap"

var (
	// HTTPRequests counts served requests by method, matched route pattern and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes request latency by method and matched route pattern.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "route"})

	// GeocodeRequests counts outbound lookups by result: found, not_found, error, shared.
	GeocodeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "geocoder",
		Name:      "requests_total",
		Help:      "Total geocoding lookups by result",
	}, []string{"result"})

	// GeocodeDuration observes upstream lookups, rate limit wait included.
	GeocodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "geocoder",
		Name:      "request_duration_seconds",
		Help:      "Geocoding upstream latency in seconds, including rate limit wait",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	// RouteRequests counts route computations by result: found, not_found, error.
	RouteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "router",
		Name:      "requests_total",
		Help:      "Total route computations by result",
	}, []string{"result"})

	// TileRequests counts tile lookups by source: cache, upstream, missing, error.
	TileRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tiles",
		Name:      "requests_total",
		Help:      "Total tile lookups by source",
	}, []string{"source"})

	// StaleResults counts search and route results dropped because a newer request superseded them.
	StaleResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "views",
		Name:      "stale_results_total",
		Help:      "Results discarded because a newer request superseded them",
	}, []string{"action"})

	// ActiveViews is the number of mounted views.
	ActiveViews = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "views",
		Name:      "active",
		Help:      "Current number of mounted map views",
	})
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
