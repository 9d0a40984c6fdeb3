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

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveLine("dispatched")
	m.ObserveCommand("ping", "ok", time.Millisecond)
	m.ObserveHTTPResponse(200)
	m.ObserveHTTPError("dial")
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveLine("dispatched")
	m.ObserveLine("dispatched")
	m.ObserveCommand("ping", "ok", time.Millisecond)
	m.ObserveHTTPResponse(404)
	m.ObserveHTTPError("dial")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Lines.WithLabelValues("dispatched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("ping", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPResponses.WithLabelValues("404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPErrors.WithLabelValues("dial")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveCommand("echo", "ok", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `relaybot_router_commands_total{command="echo",outcome="ok"} 1`)
}
