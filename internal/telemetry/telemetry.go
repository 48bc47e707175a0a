// Package telemetry carries the Prometheus instruments for the research
// pipeline. A nil *Telemetry is a valid no-op receiver so components accept
// it without wiring checks.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Telemetry struct {
	sessionsStarted   prometheus.Counter
	sessionsCompleted prometheus.Counter
	sessionsFailed    prometheus.Counter
	resultsStored     prometheus.Counter
	providerRequests  *prometheus.CounterVec
	providerLatency   *prometheus.HistogramVec
	cacheHits         *prometheus.CounterVec
}

// New registers the instruments on reg. The server passes
// prometheus.DefaultRegisterer; tests pass a fresh registry.
func New(reg prometheus.Registerer) *Telemetry {
	f := promauto.With(reg)
	return &Telemetry{
		sessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "researcher", Subsystem: "sessions", Name: "started_total",
			Help: "Research sessions accepted for processing.",
		}),
		sessionsCompleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "researcher", Subsystem: "sessions", Name: "completed_total",
			Help: "Research sessions that reached the completed state.",
		}),
		sessionsFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "researcher", Subsystem: "sessions", Name: "failed_total",
			Help: "Research sessions that reached the error state.",
		}),
		resultsStored: f.NewCounter(prometheus.CounterOpts{
			Namespace: "researcher", Subsystem: "results", Name: "stored_total",
			Help: "Results persisted to the store.",
		}),
		providerRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "researcher", Subsystem: "provider", Name: "requests_total",
			Help: "Provider fetch attempts by topic and outcome.",
		}, []string{"topic", "outcome"}),
		providerLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "researcher", Subsystem: "provider", Name: "request_seconds",
			Help:    "Provider fetch latency by topic.",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "researcher", Subsystem: "provider", Name: "cache_hits_total",
			Help: "Provider fetches served from the findings cache.",
		}, []string{"topic"}),
	}
}

func (t *Telemetry) SessionStarted() {
	if t == nil {
		return
	}
	t.sessionsStarted.Inc()
}

func (t *Telemetry) SessionCompleted() {
	if t == nil {
		return
	}
	t.sessionsCompleted.Inc()
}

func (t *Telemetry) SessionFailed() {
	if t == nil {
		return
	}
	t.sessionsFailed.Inc()
}

func (t *Telemetry) ResultStored() {
	if t == nil {
		return
	}
	t.resultsStored.Inc()
}

func (t *Telemetry) ObserveProvider(topic, outcome string, d time.Duration) {
	if t == nil {
		return
	}
	t.providerRequests.WithLabelValues(topic, outcome).Inc()
	t.providerLatency.WithLabelValues(topic).Observe(d.Seconds())
}

func (t *Telemetry) ProviderCacheHit(topic string) {
	if t == nil {
		return
	}
	t.cacheHits.WithLabelValues(topic).Inc()
}
