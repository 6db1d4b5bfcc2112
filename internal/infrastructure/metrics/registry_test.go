package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCollects(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Metrics.AlertsTriggered.WithLabelValues("left_top").Inc()
	r.Metrics.AlertsActive.WithLabelValues("left_top").Set(1)

	assert.Equal(t, float64(1), testutil.ToFloat64(r.Metrics.AlertsTriggered.WithLabelValues("left_top")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.Metrics.AlertsActive.WithLabelValues("left_top")))
}

func TestRegistryHandler(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Metrics.SensorUpdates.WithLabelValues("beer").Add(3)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `sensor_watchdog_sensor_updates_total{sensor="beer"} 3`)
	assert.Contains(t, string(body), "go_goroutines")
}
