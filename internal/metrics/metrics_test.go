package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewImport(reg)

	m.JobStarted()
	m.RowProcessed("created")
	m.RowProcessed("created")
	m.RowProcessed("failed")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.active))

	m.JobFinished("completed", 2*time.Second)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.active))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.rowsTotal.WithLabelValues("created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobsTotal.WithLabelValues("completed")))
}

func TestNilCollectorsAreNoops(t *testing.T) {
	var m *Import
	m.JobStarted()
	m.RowProcessed("created")
	m.JobFinished("failed", time.Second)

	var h *HTTP
	h.Observe(http.MethodGet, "/", http.StatusOK, time.Millisecond)
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := New()
	reg.HTTP.Observe(http.MethodGet, "/healthz", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "testcraft_http_requests_total")
}
