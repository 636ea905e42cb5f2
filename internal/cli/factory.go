package cli

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/spindle/internal/counter"
	"github.com/aretw0/spindle/pkg/config"
	"github.com/aretw0/spindle/pkg/domain"
	"github.com/aretw0/spindle/pkg/observability"
	"github.com/aretw0/spindle/pkg/viewmodel"
)

type (
	counterVM    = viewmodel.ViewModel[counter.Input, counter.Event, counter.State]
	counterHooks = domain.Hooks[counter.Input, counter.Event, counter.State]
)

// createCounter builds the demo ViewModel from settings. Metrics are recorded only
// when reg is not nil.
func createCounter(s config.Settings, logger *slog.Logger, reg prometheus.Registerer, hooks ...counterHooks) (*counterVM, error) {
	cfg := counter.Config()
	cfg.Logger = logger
	if err := config.Apply(s, &cfg); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	cfg.Hooks = append(cfg.Hooks, observability.LoggingHooks[counter.Input, counter.Event, counter.State](logger))
	if reg != nil {
		m := observability.NewMetrics(reg)
		cfg.Hooks = append(cfg.Hooks, observability.MetricsHooks[counter.Input, counter.Event, counter.State](m, cfg.Name))
	}
	cfg.Hooks = append(cfg.Hooks, hooks...)

	vm, err := viewmodel.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("error initializing viewmodel: %w", err)
	}
	return vm, nil
}
