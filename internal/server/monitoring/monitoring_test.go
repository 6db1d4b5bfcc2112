package monitoring

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okieraised/sensor-watchdog/internal/infrastructure/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMuxServesMetricsAndStatsviz(t *testing.T) {
	reg := metrics.NewRegistry()
	reg.Metrics.AlertsTriggered.WithLabelValues("left_top").Inc()

	mux, err := NewMux(reg.Handler())
	require.NoError(t, err)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `sensor_watchdog_alerts_triggered_total{sensor="left_top"} 1`)

	resp, err = http.Get(srv.URL + "/debug/statsviz/")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMuxWithoutMetrics(t *testing.T) {
	mux, err := NewMux(nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
