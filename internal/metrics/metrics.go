// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector counts the bot's core events.
type Collector struct {
	registry           *prometheus.Registry
	sessionsStarted    prometheus.Counter
	itemsDispatched    prometheus.Counter
	sendFailures       prometheus.Counter
	dispatchFallbacks  prometheus.Counter
	sequencesCompleted prometheus.Counter
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sequencebot_sessions_started_total",
			Help: "Number of collection sessions started.",
		}),
		itemsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sequencebot_items_dispatched_total",
			Help: "Number of items delivered in sorted order.",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sequencebot_send_failures_total",
			Help: "Number of per-item send failures.",
		}),
		dispatchFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sequencebot_dispatch_fallbacks_total",
			Help: "Number of dispatch runs that fell back to the requester's chat.",
		}),
		sequencesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sequencebot_sequences_completed_total",
			Help: "Number of finished dispatch runs.",
		}),
	}
	c.registry.MustRegister(
		c.sessionsStarted,
		c.itemsDispatched,
		c.sendFailures,
		c.dispatchFallbacks,
		c.sequencesCompleted,
	)
	return c
}

// SessionStarted records a new collection session.
func (c *Collector) SessionStarted() { c.sessionsStarted.Inc() }

// ItemsDispatched records successfully delivered items.
func (c *Collector) ItemsDispatched(n int) { c.itemsDispatched.Add(float64(n)) }

// SendFailures records isolated per-item failures.
func (c *Collector) SendFailures(n int) { c.sendFailures.Add(float64(n)) }

// DispatchFallback records a fallback pass to the requester's chat.
func (c *Collector) DispatchFallback() { c.dispatchFallbacks.Inc() }

// SequenceCompleted records one finished dispatch run.
func (c *Collector) SequenceCompleted() { c.sequencesCompleted.Inc() }

// Handler returns the HTTP handler serving /metrics and /healthz.
func (c *Collector) Handler() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}
