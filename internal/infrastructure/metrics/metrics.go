// Package metrics internal/infrastructure/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outbound calls to the exchange rate backend
var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_api_requests_total",
			Help: "Total number of requests sent to the exchange rate API",
		},
		[]string{"operation", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "exchange_api_request_duration_seconds",
			Help:    "Duration of requests sent to the exchange rate API in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Widget operations triggered by the user
var WidgetActionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "widget_actions_total",
		Help: "Total number of widget actions by outcome",
	},
	[]string{"action", "outcome"},
)

// ObserveAPIRequest records one outbound call. A zero status means the call
// never got an answer.
func ObserveAPIRequest(operation string, statusCode int, started time.Time) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}

	APIRequestsTotal.WithLabelValues(operation, status).Inc()
	APIRequestDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// ObserveAction records the outcome of a widget action
func ObserveAction(action, outcome string) {
	WidgetActionsTotal.WithLabelValues(action, outcome).Inc()
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// Inbound widget requests
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_http_requests_total",
			Help: "Total number of HTTP requests served by the widget",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "widget_http_request_duration_seconds",
			Help:    "Duration of HTTP requests served by the widget in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// ObserveHTTPRequest records one served request
func ObserveHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
