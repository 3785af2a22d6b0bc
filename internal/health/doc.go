// Package health provides the admin server's liveness, readiness and
// health endpoints.
//
// # Usage
//
//	checker := health.NewChecker(version)
//	checker.RegisterCheck("backends", health.BackendsCheck(registry))
//
//	engine := gin.New()
//	health.NewHandler(checker).RegisterRoutes(engine)
//
// /live always answers 200 while the process runs. /ready answers 503
// when any registered check is unhealthy; the backends check is unhealthy
// only when no backend is healthy. /health reports every check with the
// version and uptime.
package health
