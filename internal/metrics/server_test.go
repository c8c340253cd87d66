package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secwallet/internal/metrics"
)

func TestDisabledServerNeverBinds(t *testing.T) {
	s := metrics.NewServer(metrics.ServerConfig{Enabled: false, Addr: ":0", Path: "/metrics"})
	s.Start(nil)
	require.NoError(t, s.Stop(context.Background()))
}

func TestDefaultServerConfigIsDisabled(t *testing.T) {
	cfg := metrics.DefaultServerConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "/metrics", cfg.Path)
}

func TestMetricsHandlerServesRegisteredCollectors(t *testing.T) {
	metrics.Init()
	m := metrics.New()
	m.RecordRequest("sws", "CREATE", "ok", 0.01)

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerStopIsIdempotentWhenNeverStarted(t *testing.T) {
	s := metrics.NewServer(metrics.ServerConfig{Enabled: true, Addr: ":0", Path: "/metrics"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}
