// Package obs holds Prometheus metrics for the feed service.
package obs

import "github.com/prometheus/client_golang/prometheus"

const namespace = "market_sandbox"

var (
	// StreamsActive tracks currently open live stream connections by transport.
	StreamsActive = NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "streams_active",
		Help:      "Open live stream connections.",
	}, []string{"transport"})

	// EventsTotal counts emitted stream events by transport and event type.
	EventsTotal = NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stream_events_total",
		Help:      "Stream events emitted.",
	}, []string{"transport", "event"})

	// HistoryRequests counts history endpoint hits.
	HistoryRequests = NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "history_requests_total",
		Help:      "History endpoint requests served.",
	})

	// RateLimited counts requests rejected by the per-route limiter.
	RateLimited = NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by rate limiting.",
	}, []string{"category"})
)

// Convenience helpers to avoid repeating registration.

func NewCounter(opts prometheus.CounterOpts) prometheus.Counter {
	c := prometheus.NewCounter(opts)
	prometheus.MustRegister(c)
	return c
}

func NewCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	prometheus.MustRegister(c)
	return c
}

func NewGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	g := prometheus.NewGauge(opts)
	prometheus.MustRegister(g)
	return g
}

func NewGaugeVec(opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	g := prometheus.NewGaugeVec(opts, labels)
	prometheus.MustRegister(g)
	return g
}
