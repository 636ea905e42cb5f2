package cli

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/spindle/internal/counter"
	"github.com/aretw0/spindle/internal/logging"
	spindlehttp "github.com/aretw0/spindle/pkg/adapters/http"
	"github.com/aretw0/spindle/pkg/config"
)

func TestServerHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	streams := spindlehttp.NewStreamManager(nil)
	logger := logging.NewNop()

	vm, err := createCounter(config.Defaults(), logger, reg,
		spindlehttp.EventHooks[counter.Input, counter.Event, counter.State](streams))
	require.NoError(t, err)
	require.NoError(t, vm.Start(context.Background()))
	t.Cleanup(func() { _ = closeViewModel(vm) })

	srv := httptest.NewServer(newServerHandler(vm, streams, reg, logger))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/inputs?await=true", "application/json",
		strings.NewReader(`{"kind":"increment","n":3}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"count":3,"ticks":0,"ticking":false}`, string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `spindle_viewmodel_inputs_total{outcome="handled",viewmodel="counter"} 1`)
	assert.Contains(t, string(body), `spindle_viewmodel_states_total{outcome="emitted",viewmodel="counter"} 1`)
}

func TestServerHandler_NoMetrics(t *testing.T) {
	vm, err := createCounter(config.Defaults(), logging.NewNop(), nil)
	require.NoError(t, err)
	require.NoError(t, vm.Start(context.Background()))
	t.Cleanup(func() { _ = closeViewModel(vm) })

	srv := httptest.NewServer(newServerHandler(vm, spindlehttp.NewStreamManager(nil), nil, logging.NewNop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRunServer_Shutdown(t *testing.T) {
	s := config.Defaults()
	s.HTTP.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunServer(ctx, Options{Settings: s, Stdout: io.Discard})
	}()

	cancel()
	require.NoError(t, <-done)
}
