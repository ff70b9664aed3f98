// Package metrics exposes Prometheus collectors on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	mealsLogged  *prometheus.CounterVec
	foodLookups  *prometheus.CounterVec
	eventFailure prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nutritrack",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route template and status code.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nutritrack",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		mealsLogged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nutritrack",
			Name:      "meals_logged_total",
			Help:      "Meals created, by meal type.",
		}, []string{"meal_type"}),
		foodLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nutritrack",
			Name:      "food_lookups_total",
			Help:      "Food catalogue lookups by kind (search, barcode, category, id) and result.",
		}, []string{"kind", "result"}),
		eventFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nutritrack",
			Name:      "event_publish_failures_total",
			Help:      "Domain events that could not be published.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.mealsLogged, m.foodLookups, m.eventFailure,
	)
	return m
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) MealLogged(mealType string) { m.mealsLogged.WithLabelValues(mealType).Inc() }

// FoodLookup counts a lookup; result is "hit" or "miss".
func (m *Metrics) FoodLookup(kind string, found bool) {
	result := "miss"
	if found {
		result = "hit"
	}
	m.foodLookups.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) EventPublishFailed() { m.eventFailure.Inc() }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
