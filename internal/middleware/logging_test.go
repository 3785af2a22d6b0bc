package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/svcgw/internal/observability"
)

func TestLogging(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	logger := observability.NewLoggerFromZap(zap.New(core))

	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	}),
		RequestIDWithGenerator(func() string { return "rid-7" }),
		Logging(logger, NewClientIPExtractor(nil)),
	)

	req := httptest.NewRequest(http.MethodPost, "/api/users?x=1", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "/api/users", fields["path"])
	assert.Equal(t, "x=1", fields["query"])
	assert.Equal(t, int64(http.StatusCreated), fields["status"])
	assert.Equal(t, int64(5), fields["size"])
	assert.Equal(t, "192.0.2.10", fields["client_ip"])
	assert.Equal(t, "rid-7", fields["request_id"])
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, status: http.StatusOK}

	_, _ = rw.Write([]byte("x"))
	rw.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusOK, rw.status)
	assert.Same(t, rec, rw.Unwrap())
}
