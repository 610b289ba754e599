package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.IncConversion("convert", "ok")
	m.IncConversion("convert", "ok")
	m.IncConversion("convert", "invalid_day")
	m.AddRemindersCreated(28)
	m.AddRemindersDeleted("prune", 3)
	m.AddRemindersDeleted("prune", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Conversions.WithLabelValues("convert", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Conversions.WithLabelValues("convert", "invalid_day")))
	assert.Equal(t, 28.0, testutil.ToFloat64(m.RemindersCreated))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RemindersDeleted.WithLabelValues("prune")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncConversion("convert", "ok")
		m.AddRemindersCreated(1)
		m.AddRemindersDeleted("clear", 1)
		m.ObserveRequest("/health", http.MethodGet, http.StatusOK, time.Millisecond)
	})

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveRequest("/api/v1/lunar/convert", http.MethodGet, http.StatusOK, 2*time.Millisecond)
	m.IncConversion("project", "ok")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "lunar_http_request_duration_seconds")
	assert.Contains(t, body, `lunar_conversions_total{operation="project",outcome="ok"} 1`)
}
