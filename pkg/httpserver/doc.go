// Package httpserver runs the meterd HTTP API with configurable timeouts and
// graceful shutdown.
//
// Run blocks until its context is cancelled or the process receives SIGINT or
// SIGTERM, then drains in-flight requests within the shutdown timeout.
// HealthCheckHandler serves /healthz as a liveness probe, or as a readiness
// probe when named dependency checks are supplied:
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	err := srv.Run(ctx, router)
package httpserver
