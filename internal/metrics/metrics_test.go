package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveMatch(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveMatch(ModeAuto, 4, 10*time.Millisecond)
	m.ObserveMatch(ModeAuto, 2, 5*time.Millisecond)
	m.ObserveMatch(ModeSuggest, 1, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MatchRuns.WithLabelValues(ModeAuto)))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.CandidatesScored.WithLabelValues(ModeAuto)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MatchRuns.WithLabelValues(ModeSuggest)))
}

func TestClaimTransition(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ClaimTransition("approve", nil)
	m.ClaimTransition("approve", errors.New("conflict"))
	m.ClaimTransition("approve", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ClaimTransitions.WithLabelValues("approve", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClaimTransitions.WithLabelValues("approve", "error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveMatch(ModeFind, 1, time.Second)
		m.ClaimTransition("submit", nil)
		m.NotificationFailed()
		m.ObserveHTTP("GET", 200, time.Millisecond)
	})
}

func TestHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveHTTP("GET", 201, time.Millisecond)
	m.NotificationFailed()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `lostbuddy_http_requests_total{code="201",method="GET"} 1`)
	assert.Contains(t, string(body), "lostbuddy_notification_failures_total 1")
}
