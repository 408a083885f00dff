package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concordia-classroom/concordia/internal/domain/shared"
)

func newTestCollector() *Collector {
	cfg := DefaultConfig()
	cfg.IncludeRuntime = false
	return New(cfg)
}

func TestCollector_StateCounters(t *testing.T) {
	c := newTestCollector()

	c.StateUpdated()
	c.StateUpdated()
	c.LoadFallback("missing")
	c.LoadFallback("malformed")
	c.LoadFallback("missing")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.stateUpdates))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.loadFallbacks.WithLabelValues("missing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.loadFallbacks.WithLabelValues("malformed")))
}

func TestCollector_EventBusHooks(t *testing.T) {
	c := newTestCollector()
	hooks := c.EventBusHooks()

	hooks.OnPublish(shared.EventStateUpdated)
	hooks.OnHandlerDone(shared.EventStateUpdated, time.Millisecond, false)
	hooks.OnHandlerDone(shared.EventStateUpdated, time.Millisecond, true)
	hooks.OnPublishError(shared.EventStateUpdated, errors.New("x"))

	label := string(shared.EventStateUpdated)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.eventsTotal.WithLabelValues(label)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.handlerErrors.WithLabelValues(label)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.publishErrors.WithLabelValues(label)))
}

func TestCollector_HandlerExposesMetrics(t *testing.T) {
	c := newTestCollector()
	c.ReportFinished("ready")
	c.ObserveHTTP("GET /api/v1/state", 200, 3*time.Millisecond)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `concordia_report_requests_total{outcome="ready"} 1`)
	assert.Contains(t, string(body), `concordia_http_requests_total{route="GET /api/v1/state",status="200"} 1`)
}
