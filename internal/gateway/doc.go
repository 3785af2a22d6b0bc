// Package gateway provides the gateway's request pipeline and server.
//
// Handler runs every inbound request through the same sequence: CORS
// preflight, the traffic snapshot on /metrics, the per-client rate limit,
// routing plus the backend health check, and finally the retrying proxy.
// Gateway mounts a handler on a gin engine and serves it on one listener.
//
// # Usage
//
//	h := gateway.NewHandler(rt, registry, engine,
//	    gateway.WithLimiter(limiter),
//	    gateway.WithHandlerLogger(logger),
//	)
//
//	gw, err := gateway.New(gateway.Config{ListenAddress: "127.0.0.1:8082"},
//	    gateway.WithLogger(logger),
//	    gateway.WithRouteHandler(h),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := gw.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer gw.Stop(ctx)
package gateway
