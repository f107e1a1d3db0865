// Package metrics exposes Prometheus counters for chat outcomes, throttling
// and upstream latency. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reply sources for kelvin_chat_replies_total.
const (
	SourceCrisis        = "crisis"
	SourceMisconfigured = "misconfigured"
	SourceRelay         = "relay"
	SourceFallback      = "fallback"
)

type Metrics struct {
	registry      *prometheus.Registry
	chatReplies   *prometheus.CounterVec
	rateLimited   prometheus.Counter
	questsServed  prometheus.Counter
	relayDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		chatReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kelvin_chat_replies_total",
			Help: "Chat replies by the component that produced them",
		}, []string{"source"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kelvin_rate_limited_total",
			Help: "Chat requests rejected by the per-client rate limit",
		}),
		questsServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kelvin_quests_served_total",
			Help: "Quests returned by /api/quest/today",
		}),
		relayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kelvin_relay_duration_seconds",
			Help:    "Latency of language model calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.chatReplies,
		m.rateLimited,
		m.questsServed,
		m.relayDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ChatReply(source string) {
	if m == nil {
		return
	}
	m.chatReplies.WithLabelValues(source).Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *Metrics) QuestServed() {
	if m == nil {
		return
	}
	m.questsServed.Inc()
}

// ObserveRelay records how long an upstream call took and how it ended.
func (m *Metrics) ObserveRelay(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.relayDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
