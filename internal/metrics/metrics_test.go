package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	m := New(func() int { return 3 })
	m.SessionsCreatedTotal.WithLabelValues("typed").Inc()
	m.ChatTurnsTotal.WithLabelValues("ok").Add(2)
	m.SessionsEvictedTotal.Inc()
	m.ModelLatency.Observe(0.4)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsCreatedTotal.WithLabelValues("typed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChatTurnsTotal.WithLabelValues("ok")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, "consult_sessions_active 3")
	assert.Contains(t, text, `consult_sessions_created_total{source="typed"} 1`)
	assert.Contains(t, text, "consult_sessions_evicted_total 1")
	assert.Contains(t, text, "consult_model_latency_seconds_count 1")
}
