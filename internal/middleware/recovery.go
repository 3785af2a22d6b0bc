package middleware

import (
	"io"
	"net/http"
	"runtime/debug"

	"github.com/vyrodovalexey/svcgw/internal/observability"
)

// Recovery returns a middleware that recovers from panics. The response
// keeps any headers already set (request ID, CORS) and gets a plain 500.
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
func Recovery(logger observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}

				logger.WithContext(r.Context()).Error("panic recovered",
					observability.String("path", r.URL.Path),
					observability.String("method", r.Method),
					observability.Any("error", err),
					observability.String("stack", string(debug.Stack())),
				)

				w.Header().Set(HeaderAllowOrigin, "*")
				w.Header().Set(HeaderContentType, ContentTypeTextPlain)
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, errInternalServerBody)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
