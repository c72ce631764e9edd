package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coffeebeat",
			Name:      "http_requests_total",
			Help:      "Dashboard HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	backendPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coffeebeat",
			Name:      "backend_polls_total",
			Help:      "Backend booking polls by outcome.",
		},
		[]string{"outcome"},
	)

	tablesCleared = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coffeebeat",
			Name:      "tables_cleared_total",
			Help:      "Staff clear-table actions.",
		},
	)

	ordersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coffeebeat",
			Name:      "orders_submitted_total",
			Help:      "Orders submitted by type and outcome.",
		},
		[]string{"order_type", "outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, backendPolls, tablesCleared, ordersSubmitted)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncPoll records one backend poll with outcome "ok" or "error".
func IncPoll(outcome string) {
	backendPolls.WithLabelValues(outcome).Inc()
}

// IncTableCleared records a staff clear-table action.
func IncTableCleared() {
	tablesCleared.Inc()
}

// IncOrder records one order submission attempt.
func IncOrder(orderType, outcome string) {
	ordersSubmitted.WithLabelValues(orderType, outcome).Inc()
}
