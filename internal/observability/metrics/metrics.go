package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// DirectoryMetrics exposes counters/histograms for directory flows.
type DirectoryMetrics struct {
	submissions      *prometheus.CounterVec
	gateDecisions    *prometheus.CounterVec
	removalDecisions *prometheus.CounterVec
	requestLatency   *prometheus.HistogramVec
}

func NewDirectoryMetrics(reg prometheus.Registerer) *DirectoryMetrics {
	m := &DirectoryMetrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aba",
			Subsystem: "forms",
			Name:      "submissions_total",
			Help:      "Public form submissions by outcome",
		}, []string{"form", "outcome"}),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aba",
			Subsystem: "plans",
			Name:      "gate_decisions_total",
			Help:      "Feature gate decisions",
		}, []string{"feature", "allowed"}),
		removalDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aba",
			Subsystem: "removals",
			Name:      "decisions_total",
			Help:      "Admin decisions on removal requests",
		}, []string{"outcome"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aba",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of API requests by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissions, m.gateDecisions, m.removalDecisions, m.requestLatency)
	return m
}

func (m *DirectoryMetrics) ObserveSubmission(form, outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(form, outcome).Inc()
}

func (m *DirectoryMetrics) ObserveGate(feature string, allowed bool) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(feature, strconv.FormatBool(allowed)).Inc()
}

func (m *DirectoryMetrics) ObserveRemovalDecision(outcome string) {
	if m == nil {
		return
	}
	m.removalDecisions.WithLabelValues(outcome).Inc()
}

func (m *DirectoryMetrics) ObserveRequest(route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.requestLatency.WithLabelValues(route, strconv.Itoa(status)).Observe(seconds)
}
