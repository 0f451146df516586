// Activity counters exported to Prometheus: subscriptions, unsubscriptions,
// notifications sent and skipped.

package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tinode/anonsub/server/logs"
)

const metricsNamespace = "anonsub"

// promStats implements subscr.Stats.
type promStats struct {
	subscribed   prometheus.Counter
	unsubscribed prometheus.Counter
	notified     prometheus.Counter
	skipped      *prometheus.CounterVec
}

func newPromStats(reg prometheus.Registerer) *promStats {
	s := &promStats{
		subscribed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "subscribed_total",
			Help:      "Number of emails subscribed to topics.",
		}),
		unsubscribed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "unsubscribed_total",
			Help:      "Number of emails unsubscribed from topics.",
		}),
		notified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "notifications_total",
			Help:      "Number of subscribers notified of new replies.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "notify_skipped_total",
			Help:      "Number of replies which triggered no notification, by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(s.subscribed, s.unsubscribed, s.notified, s.skipped)
	return s
}

func (s *promStats) Subscribed() {
	s.subscribed.Inc()
}

func (s *promStats) Unsubscribed() {
	s.unsubscribed.Inc()
}

func (s *promStats) Notified(recipients int) {
	s.notified.Add(float64(recipients))
}

func (s *promStats) Skipped(reason string) {
	s.skipped.WithLabelValues(reason).Inc()
}

// Initialize stats reporting. Returns nil if metrics are disabled.
func statsInit(mux *http.ServeMux, path string) *promStats {
	if path == "" || path == "-" {
		return nil
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	stats := newPromStats(registry)

	mux.Handle(path, promhttp.InstrumentMetricHandler(
		registry,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{ErrorLog: logs.Err}),
	))

	logs.Info.Printf("stats: metrics exposed at '%s'", path)
	return stats
}
