// Package observability provides logging, metrics, and tracing
// for the gateway.
//
// Structured logging goes through the Logger interface, backed by zap:
//
//	logger, err := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("request completed",
//	    observability.String("backend", "user-service"),
//	    observability.Duration("duration", d),
//	)
//
// Prometheus collectors live on a private registry so that several
// Metrics values can coexist in one process (tests do this):
//
//	metrics := observability.NewMetrics("svcgw")
//	mux.Handle("/metrics", metrics.Handler())
//
// Tracing wraps an OpenTelemetry tracer provider. When tracing is
// disabled the global no-op provider is used and no propagation headers
// are injected into upstream requests.
package observability
