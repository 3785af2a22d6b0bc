package gateway

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/svcgw/internal/backend"
	"github.com/vyrodovalexey/svcgw/internal/middleware"
	"github.com/vyrodovalexey/svcgw/internal/observability"
	"github.com/vyrodovalexey/svcgw/internal/proxy"
	"github.com/vyrodovalexey/svcgw/internal/ratelimit"
	"github.com/vyrodovalexey/svcgw/internal/router"
	"github.com/vyrodovalexey/svcgw/internal/stats"
)

// DefaultStatsPath serves the JSON traffic snapshot.
const DefaultStatsPath = "/metrics"

// DefaultMaxBodyBytes caps buffered request bodies.
const DefaultMaxBodyBytes int64 = 10 << 20

// Response bodies for requests the gateway answers itself.
const (
	msgRateLimited      = "Rate limit exceeded"
	msgUnavailable      = "Service unavailable"
	msgBodyTooLarge     = "Request body too large"
	msgBadRequestBody   = "Failed to read request body"
	msgProxyErrorPrefix = "Proxy error: "
)

const (
	headerRateLimitLimit     = "X-RateLimit-Limit"
	headerRateLimitRemaining = "X-RateLimit-Remaining"
	headerRetryAfter         = "Retry-After"
)

// Handler is the gateway's request pipeline. It owns no goroutines; the
// health checker updates backend state behind the registry.
type Handler struct {
	router       *router.Router
	registry     *backend.Registry
	engine       *proxy.Engine
	stats        *stats.Collector
	limiter      ratelimit.Limiter
	clientIP     *middleware.ClientIPExtractor
	metrics      *observability.Metrics
	logger       observability.Logger
	maxBodyBytes int64
	statsPath    string
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithStats sets the traffic counters. Useful when the admin server reads
// the same collector.
func WithStats(c *stats.Collector) HandlerOption {
	return func(h *Handler) {
		if c != nil {
			h.stats = c
		}
	}
}

// WithLimiter sets the rate limiter.
func WithLimiter(l ratelimit.Limiter) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.limiter = l
		}
	}
}

// WithClientIPExtractor sets how the rate-limit identity is derived.
func WithClientIPExtractor(e *middleware.ClientIPExtractor) HandlerOption {
	return func(h *Handler) {
		if e != nil {
			h.clientIP = e
		}
	}
}

// WithHandlerLogger sets the logger.
func WithHandlerLogger(l observability.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithHandlerMetrics sets the Prometheus metrics.
func WithHandlerMetrics(m *observability.Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithMaxBodyBytes caps request bodies. Zero or less disables the cap.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		h.maxBodyBytes = n
	}
}

// WithStatsPath changes the path of the JSON snapshot.
func WithStatsPath(p string) HandlerOption {
	return func(h *Handler) {
		if p != "" {
			h.statsPath = p
		}
	}
}

// NewHandler creates the pipeline. Without WithLimiter it uses an in-memory
// fixed window of 1000 requests per minute.
func NewHandler(rt *router.Router, registry *backend.Registry, engine *proxy.Engine, opts ...HandlerOption) *Handler {
	h := &Handler{
		router:       rt,
		registry:     registry,
		engine:       engine,
		stats:        stats.NewCollector(),
		clientIP:     middleware.NewClientIPExtractor(nil),
		logger:       observability.NopLogger(),
		maxBodyBytes: DefaultMaxBodyBytes,
		statsPath:    DefaultStatsPath,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.limiter == nil {
		h.limiter = ratelimit.NewFixedWindowLimiter(ratelimit.DefaultRequests, ratelimit.DefaultWindow)
	}
	return h
}

// Stats returns the traffic counters.
func (h *Handler) Stats() *stats.Collector {
	return h.stats
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := observability.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = observability.ContextWithRequestID(ctx, requestID)
		r = r.WithContext(ctx)
	}
	w.Header().Set(middleware.HeaderXRequestID, requestID)
	w.Header().Set(headerAllowOrigin, corsAllowOrigin)

	start := time.Now()
	h.stats.RequestStarted()
	h.metrics.IncActiveConnections()
	defer func() {
		h.stats.RequestFinished()
		h.metrics.DecActiveConnections()
	}()

	logger := h.logger.WithContext(ctx)
	logger.Debug("request received",
		observability.String("method", r.Method),
		observability.String("path", r.URL.Path),
	)

	if r.Method == http.MethodOptions {
		writePreflight(w)
		h.metrics.RecordRequest("", observability.OutcomePreflight, time.Since(start))
		return
	}

	if r.URL.Path == h.statsPath {
		h.writeStats(w)
		h.metrics.RecordRequest("", observability.OutcomeMetrics, time.Since(start))
		return
	}

	clientID := h.clientIP.Extract(r)
	if !h.admit(w, r, clientID, logger) {
		h.stats.RecordFailure()
		h.metrics.RecordRateLimitRejection()
		h.metrics.RecordRequest("", observability.OutcomeRateLimited, time.Since(start))
		writeText(w, http.StatusTooManyRequests, msgRateLimited)
		return
	}

	name := h.router.Resolve(r.URL.Path)
	b, ok := h.registry.Get(name)
	if !ok || !b.IsHealthy() {
		logger.Warn("backend unavailable",
			observability.String("backend", name),
			observability.Bool("registered", ok),
		)
		h.unavailable(w, name, start)
		return
	}

	req, err := proxy.NewRequest(r, h.maxBodyBytes)
	if err != nil {
		h.stats.RecordFailure()
		if errors.Is(err, proxy.ErrBodyTooLarge) {
			logger.Warn("request body too large",
				observability.String("backend", name),
				observability.Int64("limit", h.maxBodyBytes),
			)
			h.metrics.RecordRequest(name, observability.OutcomeBodyTooLarge, time.Since(start))
			writeText(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}
		logger.Warn("failed to read request body", observability.Error(err))
		h.metrics.RecordRequest(name, observability.OutcomeBadRequest, time.Since(start))
		writeText(w, http.StatusBadRequest, msgBadRequestBody)
		return
	}

	resp, err := h.engine.Forward(ctx, req, b)
	if errors.Is(err, proxy.ErrCircuitOpen) {
		h.unavailable(w, name, start)
		return
	}

	elapsed := time.Since(start)
	h.stats.RecordLatency(elapsed)
	if err != nil {
		h.stats.RecordFailure()
		h.metrics.RecordRequest(name, observability.OutcomeProxyError, elapsed)
		logger.Error("proxy error",
			observability.String("backend", name),
			observability.Duration("duration", elapsed),
			observability.Error(err),
		)
		writeText(w, http.StatusInternalServerError, msgProxyErrorPrefix+err.Error())
		return
	}

	h.stats.RecordSuccess()
	h.metrics.RecordRequest(name, observability.OutcomeSuccess, elapsed)
	logger.Info("request completed",
		observability.String("backend", name),
		observability.Int("status", resp.StatusCode),
		observability.Duration("duration", elapsed),
	)

	header := w.Header()
	for k, v := range resp.Header {
		header[k] = v
	}
	header.Set(middleware.HeaderXRequestID, requestID)
	header.Set(headerAllowOrigin, corsAllowOrigin)
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(resp.Body); err != nil {
		logger.Debug("failed to write response body", observability.Error(err))
	}
}

// admit consults the limiter. A limiter error admits the request.
func (h *Handler) admit(w http.ResponseWriter, r *http.Request, clientID string, logger observability.Logger) bool {
	res, err := h.limiter.Allow(r.Context(), clientID)
	if err != nil {
		logger.Warn("rate limit check failed, admitting request",
			observability.String("client", clientID),
			observability.Error(err),
		)
		return true
	}
	if res.Allowed {
		return true
	}

	logger.Warn("rate limit exceeded",
		observability.String("client", clientID),
		observability.Int("limit", res.Limit),
	)
	header := w.Header()
	header.Set(headerRateLimitLimit, strconv.Itoa(res.Limit))
	header.Set(headerRateLimitRemaining, strconv.Itoa(res.Remaining))
	if res.ResetAfter > 0 {
		header.Set(headerRetryAfter, strconv.Itoa(int(math.Ceil(res.ResetAfter.Seconds()))))
	}
	return false
}

func (h *Handler) unavailable(w http.ResponseWriter, name string, start time.Time) {
	h.stats.RecordServiceError()
	h.stats.RecordFailure()
	h.metrics.RecordRequest(name, observability.OutcomeUnavailable, time.Since(start))
	writeText(w, http.StatusServiceUnavailable, msgUnavailable)
}

func (h *Handler) writeStats(w http.ResponseWriter) {
	body, err := json.Marshal(h.stats.Snapshot())
	if err != nil {
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set(middleware.HeaderContentType, "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set(middleware.HeaderContentType, middleware.ContentTypeTextPlain)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
