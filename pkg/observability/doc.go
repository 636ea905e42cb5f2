/*
Package observability turns ViewModel hooks into metrics and logs.

MetricsHooks feeds a Metrics collection (prometheus counters and a side-job gauge),
LoggingHooks writes every notification to a slog.Logger. Both return plain
domain.Hooks and are combined with anything else through the ViewModel Config:

	m := observability.NewMetrics(prometheus.DefaultRegisterer)
	cfg.Hooks = append(cfg.Hooks,
		observability.MetricsHooks[I, E, S](m, "counter"),
		observability.LoggingHooks[I, E, S](logger),
	)
*/
package observability
