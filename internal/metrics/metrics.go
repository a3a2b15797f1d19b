package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "medinow"

// Metrics holds the order core counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	OrdersCreated   *prometheus.CounterVec
	StatusChanges   *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
	GatewayRequests *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders persisted, by payment provider.",
		}, []string{"provider"}),
		StatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_changes_total",
			Help:      "Order status changes, by target status and source.",
		}, []string{"to", "source"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification emails attempted, by kind and result.",
		}, []string{"kind", "result"}),
		GatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_gateway_requests_total",
			Help:      "Payment gateway calls, by operation and result.",
		}, []string{"op", "result"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_events_published_total",
			Help:      "Order events published, by type and result.",
		}, []string{"type", "result"}),
	}

	reg.MustRegister(
		m.OrdersCreated,
		m.StatusChanges,
		m.Notifications,
		m.GatewayRequests,
		m.EventsPublished,
	)
	return m
}

func (m *Metrics) OrderCreated(provider string) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(provider).Inc()
}

func (m *Metrics) StatusChanged(to, source string) {
	if m == nil {
		return
	}
	m.StatusChanges.WithLabelValues(to, source).Inc()
}

func (m *Metrics) Notification(kind string, err error) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(kind, result(err)).Inc()
}

func (m *Metrics) GatewayRequest(op string, err error) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(op, result(err)).Inc()
}

func (m *Metrics) EventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler exposes the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
