package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/svcgw/internal/observability"
)

// RequestIDHeader is the header name for request ID.
const RequestIDHeader = HeaderXRequestID

// RequestID returns a middleware that gives each request a new UUID. The ID
// is stored in the request context and set on the response before the next
// handler runs. An inbound X-Request-ID is ignored.
func RequestID() func(http.Handler) http.Handler {
	return RequestIDWithGenerator(uuid.NewString)
}

// RequestIDWithGenerator returns a middleware that uses a custom ID generator.
func RequestIDWithGenerator(generator func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := generator()

			ctx := observability.ContextWithRequestID(r.Context(), requestID)
			w.Header().Set(RequestIDHeader, requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
