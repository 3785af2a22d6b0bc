package proxy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/svcgw/internal/backend"
	"github.com/vyrodovalexey/svcgw/internal/observability"
	"github.com/vyrodovalexey/svcgw/internal/retry"
)

// DefaultAttemptTimeout bounds one upstream call including the body read.
const DefaultAttemptTimeout = 10 * time.Second

// hopHeaders are connection-scoped response headers that are not copied
// back to the client.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Engine forwards requests to backends.
type Engine struct {
	client         *http.Client
	retry          *retry.Config
	attemptTimeout time.Duration
	breakers       *BreakerSet
	logger         observability.Logger
	metrics        *observability.Metrics
	tracer         *observability.Tracer
	sleep          retry.SleepFunc
}

// Option is a functional option for configuring the engine.
type Option func(*Engine)

// WithClient sets the HTTP client used for upstream calls.
func WithClient(c *http.Client) Option {
	return func(e *Engine) {
		if c != nil {
			e.client = c
		}
	}
}

// WithRetryConfig sets the attempt count and backoff.
func WithRetryConfig(cfg *retry.Config) Option {
	return func(e *Engine) {
		if cfg != nil {
			e.retry = cfg
		}
	}
}

// WithAttemptTimeout sets the per-attempt timeout.
func WithAttemptTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.attemptTimeout = d
		}
	}
}

// WithBreakers enables per-backend circuit breaking.
func WithBreakers(s *BreakerSet) Option {
	return func(e *Engine) {
		e.breakers = s
	}
}

// WithLogger sets the logger.
func WithLogger(l observability.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records attempt outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTracer records a span per attempt.
func WithTracer(t *observability.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// New creates an engine with three attempts, a 100ms linear backoff and a
// 10s attempt timeout unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{
		client:         backend.NewClient(backend.DefaultPoolConfig()),
		retry:          retry.DefaultConfig(),
		attemptTimeout: DefaultAttemptTimeout,
		logger:         observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Forward sends req to b until an HTTP response arrives or the attempts run
// out. Cancellation of ctx is not propagated: a client that disconnects
// does not abort the upstream call, which still ends at the attempt
// timeout. Context values such as the request ID and span are kept.
func (e *Engine) Forward(ctx context.Context, req *Request, b *backend.Backend) (*Response, error) {
	ctx = context.WithoutCancel(ctx)

	if e.breakers == nil {
		return e.forward(ctx, req, b)
	}
	resp, err := e.breakers.Execute(b.Name(), func() (*Response, error) {
		return e.forward(ctx, req, b)
	})
	if errors.Is(err, ErrCircuitOpen) {
		e.logger.WithContext(ctx).Warn("circuit breaker rejected request",
			observability.String("backend", b.Name()),
		)
	}
	return resp, err
}

func (e *Engine) forward(ctx context.Context, req *Request, b *backend.Backend) (*Response, error) {
	logger := e.logger.WithContext(ctx)

	var resp *Response
	err := retry.Do(ctx, e.retry, func(ctx context.Context, attempt int) error {
		r, err := e.attempt(ctx, req, b, attempt)
		e.metrics.RecordAttempt(b.Name(), err == nil)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}, &retry.Options{
		Sleep: e.sleep,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			logger.Warn("upstream attempt failed, retrying",
				observability.String("backend", b.Name()),
				observability.Int("attempt", attempt),
				observability.Duration("backoff", delay),
				observability.Error(err),
			)
		},
	})
	if err != nil {
		attempts := e.retry.GetMaxAttempts()
		logger.Warn("upstream attempt failed",
			observability.String("backend", b.Name()),
			observability.Int("attempt", attempts),
			observability.Error(err),
		)
		return nil, &ExhaustedError{Backend: b.DisplayName(), Attempts: attempts, Last: err}
	}
	return resp, nil
}

func (e *Engine) attempt(ctx context.Context, req *Request, b *backend.Backend, n int) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
	defer cancel()

	target := req.TargetURL(b.URL())
	ctx, span := e.tracer.StartSpan(ctx, "proxy.attempt",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("backend", b.Name()),
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", target),
			attribute.Int("attempt", n),
		),
	)
	defer span.End()

	fail := func(op string, err error) (*Response, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, op)
		return nil, &AttemptError{Attempt: n, Op: op, Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, bytes.NewReader(req.Body))
	if err != nil {
		return fail("build", err)
	}
	httpReq.Header = req.outboundHeader()
	observability.InjectTraceContext(ctx, httpReq.Header)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return fail("send", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail("read_body", err)
	}

	header := resp.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	for _, h := range hopHeaders {
		header.Del(h)
	}
	header.Set("Access-Control-Allow-Origin", "*")

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	return &Response{StatusCode: resp.StatusCode, Header: header, Body: body}, nil
}
