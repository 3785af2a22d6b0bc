// Package backend holds the gateway's upstream services and their health.
//
// Each Backend is one logical service at one address. The Registry keeps
// them in configuration order and answers IsHealthy for the request path.
// The HealthChecker runs one probe loop per backend and is the only writer
// of a backend's health state.
//
//	registry, err := backend.NewRegistry(userSvc, productSvc)
//	checker := backend.NewHealthChecker(registry, backend.WithHealthCheckLogger(logger))
//	checker.Start(ctx)
//	defer checker.Stop()
package backend
