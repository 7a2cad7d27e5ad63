package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceRecords(t *testing.T) {
	m := NewMetricsService()
	m.RecordAuthEvent(EventRefresh)
	m.RecordAuthEvent(EventRefresh)
	m.RecordAuthEvent(EventReuseDetected)
	m.ObservePasswordHash("hash", 20*time.Millisecond)
	m.ObserveDBQuery("session_rotate", time.Millisecond)
	m.ObserveHTTPRequest(http.MethodPost, "/auth/refresh", http.StatusOK, time.Millisecond)
	m.RegisterQueueGauge("password", func() int { return 3 })

	assert.Equal(t, float64(2), testutil.ToFloat64(m.authEvents.WithLabelValues(EventRefresh)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.authEvents.WithLabelValues(EventReuseDetected)))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `auth_events_total{event="refresh"} 2`)
	assert.Contains(t, body, `password_hash_duration_seconds_count{op="hash"} 1`)
	assert.Contains(t, body, `worker_pool_pending{pool="password"} 3`)
	assert.Contains(t, body, "http_requests_total")
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.RecordAuthEvent(EventSignUp)
		m.ObservePasswordHash("verify", time.Millisecond)
		m.ObserveDBQuery("user_create", time.Millisecond)
		m.ObserveHTTPRequest(http.MethodGet, "/health", http.StatusOK, time.Millisecond)
		m.RegisterQueueGauge("password", func() int { return 0 })
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
