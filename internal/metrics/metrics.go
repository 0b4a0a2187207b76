package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checkout groups the collectors exported by the checkout service.
type Checkout struct {
	Outcomes       *prometheus.CounterVec
	Discounts      prometheus.Counter
	ChargeDuration *prometheus.HistogramVec
}

// NewCheckout creates the collectors and registers them on reg.
func NewCheckout(reg prometheus.Registerer) *Checkout {
	m := &Checkout{
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "outcomes_total",
			Help:      "Checkout outcomes by status.",
		}, []string{"status"}),
		Discounts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "discounts_total",
			Help:      "Checkouts that qualified for the bulk discount.",
		}),
		ChargeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "checkout",
			Name:      "charge_duration_seconds",
			Help:      "Payment capability latency.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"result"}),
	}
	reg.MustRegister(m.Outcomes, m.Discounts, m.ChargeDuration)
	return m
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
