// Package middleware provides the HTTP middleware wrapped around the
// gateway handler.
//
//   - Recovery: turns handler panics into a 500 and logs the stack
//   - RequestID: assigns every request a fresh UUID
//   - Tracing: starts a server span and extracts inbound trace context
//   - Logging: one structured access log line per request
//   - ClientIPExtractor: trusted-proxy aware client address
//
// Middleware functions follow the standard Go pattern and compose with Chain:
//
//	handler := middleware.Chain(gatewayHandler,
//	    middleware.Recovery(logger),
//	    middleware.RequestID(),
//	    middleware.Logging(logger, extractor),
//	)
package middleware

import "net/http"

// Chain wraps h so that the first middleware is the outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
