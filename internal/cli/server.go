package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/spindle/internal/counter"
	spindlehttp "github.com/aretw0/spindle/pkg/adapters/http"
)

// newServerHandler mounts the ViewModel API at / and, with a registry, the
// prometheus endpoint at /metrics.
func newServerHandler(vm *counterVM, streams *spindlehttp.StreamManager, reg *prometheus.Registry, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	r.Mount("/", spindlehttp.NewHandler[counter.Input, counter.State](vm,
		spindlehttp.JSONDecoder[counter.Input](),
		spindlehttp.WithLogger(logger),
		spindlehttp.WithStreams(streams),
	))
	return r
}

// RunServer serves the counter over HTTP until ctx is done, then shuts the server
// and the ViewModel down gracefully.
func RunServer(ctx context.Context, opts Options) error {
	logger := opts.logger()
	s := opts.Settings

	var reg *prometheus.Registry
	if s.HTTP.Metrics {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	streams := spindlehttp.NewStreamManager(logger)
	var registerer prometheus.Registerer
	if reg != nil {
		registerer = reg
	}
	vm, err := createCounter(s, logger, registerer,
		spindlehttp.EventHooks[counter.Input, counter.Event, counter.State](streams))
	if err != nil {
		return err
	}
	if err := vm.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	persisted, err := setupPersistence(context.WithoutCancel(ctx), s, opts.SessionID, vm, logger)
	if err != nil {
		_ = closeViewModel(vm)
		return err
	}

	// Cancelled on shutdown so that streaming requests end.
	baseCtx, cancelBase := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelBase()

	srv := &http.Server{
		Addr:        s.HTTP.Addr,
		Handler:     newServerHandler(vm, streams, reg, logger),
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}

	serverErrors := make(chan error, 1)
	go func() {
		printSystemMessage(opts.stdout(), "Serving %s (%s) on %s", vm.Name(), vm.Strategy(), srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Start shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		cancelBase()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "err", err)
			_ = srv.Close()
		}
	}

	closeErr := closeViewModel(vm)
	persisted()
	if err := errors.Join(serveErr, closeErr); err != nil {
		return err
	}
	printSystemMessage(opts.stdout(), "Server stopped gracefully")
	return nil
}
