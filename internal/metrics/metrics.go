// Package metrics holds the Prometheus collectors for matching, claims and
// the HTTP API. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lostbuddy"

// Match modes.
const (
	ModeFind    = "find"
	ModeAuto    = "auto"
	ModeSuggest = "suggest"
)

// Metrics groups the application's collectors.
type Metrics struct {
	MatchRuns         *prometheus.CounterVec
	CandidatesScored  *prometheus.CounterVec
	MatchDuration     *prometheus.HistogramVec
	ClaimTransitions  *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	NotificationFails prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers all collectors with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		MatchRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_runs_total",
			Help:      "Match runs by mode.",
		}, []string{"mode"}),
		CandidatesScored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_candidates_scored_total",
			Help:      "Candidate items scored by mode.",
		}, []string{"mode"}),
		MatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_duration_seconds",
			Help:      "Time spent finding matches for one item.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"mode"}),
		ClaimTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claim_transitions_total",
			Help:      "Claim operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		NotificationFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Notifications that could not be delivered.",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.MatchRuns,
		m.CandidatesScored,
		m.MatchDuration,
		m.ClaimTransitions,
		m.HTTPRequests,
		m.HTTPDuration,
		m.NotificationFails,
	)
	return m
}

// ObserveMatch records one match run.
func (m *Metrics) ObserveMatch(mode string, candidates int, d time.Duration) {
	if m == nil {
		return
	}
	m.MatchRuns.WithLabelValues(mode).Inc()
	m.CandidatesScored.WithLabelValues(mode).Add(float64(candidates))
	m.MatchDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// ClaimTransition records the outcome of a claim operation.
func (m *Metrics) ClaimTransition(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ClaimTransitions.WithLabelValues(operation, outcome).Inc()
}

// NotificationFailed counts one failed delivery.
func (m *Metrics) NotificationFailed() {
	if m == nil {
		return
	}
	m.NotificationFails.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(method).Observe(d.Seconds())
}
