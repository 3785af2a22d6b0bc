package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/vyrodovalexey/svcgw/internal/backend"
	"github.com/vyrodovalexey/svcgw/internal/config"
	"github.com/vyrodovalexey/svcgw/internal/gateway"
	"github.com/vyrodovalexey/svcgw/internal/health"
	"github.com/vyrodovalexey/svcgw/internal/middleware"
	"github.com/vyrodovalexey/svcgw/internal/observability"
	"github.com/vyrodovalexey/svcgw/internal/proxy"
	"github.com/vyrodovalexey/svcgw/internal/ratelimit"
	"github.com/vyrodovalexey/svcgw/internal/retry"
	"github.com/vyrodovalexey/svcgw/internal/router"
)

// application holds all application components.
type application struct {
	config        *config.Config
	logger        observability.Logger
	gateway       *gateway.Gateway
	handler       *gateway.Handler
	registry      *backend.Registry
	healthChecker *backend.HealthChecker
	checker       *health.Checker
	limiter       ratelimit.Limiter
	redisClient   redis.UniversalClient
	admin         *gateway.Listener
	metrics       *observability.Metrics
	tracer        *observability.Tracer
	reloadMetrics *reloadMetrics
}

// newApplication builds every component from cfg. Nothing is started.
func newApplication(cfg *config.Config, logger observability.Logger) (*application, error) {
	app := &application{config: cfg, logger: logger}

	app.metrics = observability.NewMetrics("svcgw")
	app.metrics.SetBuildInfo(version, gitCommit, buildTime)
	app.reloadMetrics = newReloadMetrics(app.metrics)

	tracer, err := initTracer(cfg)
	if err != nil {
		return nil, err
	}
	app.tracer = tracer

	registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}
	app.registry = registry

	app.healthChecker = backend.NewHealthChecker(registry,
		backend.WithHealthCheckLogger(logger),
		backend.WithHealthCheckInterval(cfg.HealthCheck.Interval.Duration()),
		backend.WithHealthCheckTimeout(cfg.HealthCheck.Timeout.Duration()),
		backend.WithUnhealthyThreshold(cfg.HealthCheck.UnhealthyThreshold),
		backend.WithHealthCheckMetrics(app.metrics),
		backend.WithHealthCheckClient(backend.NewClient(backend.DefaultPoolConfig())),
	)

	backoff, err := newBackoff(cfg.Retry)
	if err != nil {
		return nil, err
	}

	engine := buildEngine(cfg, backoff, logger, app.metrics, tracer)

	if err := app.initLimiter(); err != nil {
		return nil, err
	}

	clientIP := middleware.NewClientIPExtractor(cfg.RateLimit.TrustedProxies)
	app.handler = gateway.NewHandler(buildRouter(cfg), registry, engine,
		gateway.WithLimiter(app.limiter),
		gateway.WithClientIPExtractor(clientIP),
		gateway.WithHandlerLogger(logger),
		gateway.WithHandlerMetrics(app.metrics),
		gateway.WithMaxBodyBytes(cfg.Limits.MaxBodyBytes),
	)

	chain := middleware.Chain(app.handler,
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Tracing(tracer),
		middleware.Logging(logger, clientIP),
	)

	gw, err := gateway.New(gateway.Config{
		Name:          "svcgw",
		ListenAddress: cfg.Listen,
		WriteTimeout:  writeTimeout(cfg.Retry, backoff),
	},
		gateway.WithLogger(logger),
		gateway.WithRouteHandler(chain),
	)
	if err != nil {
		return nil, err
	}
	app.gateway = gw

	app.checker = health.NewChecker(version)
	app.checker.RegisterCheck("backends", health.BackendsCheck(registry))
	if app.redisClient != nil {
		app.checker.RegisterCheck("redis", health.RedisCheck(app.redisClient))
	}

	if cfg.Observability.Admin.Enabled {
		app.admin = gateway.NewListener("admin", cfg.Observability.Admin.Address,
			newAdminEngine(app.checker, app.metrics, cfg.Observability.Admin.MetricsPath),
			gateway.WithListenerLogger(logger),
		)
	}

	return app, nil
}

// start begins probing, serving and admin traffic.
func (app *application) start(ctx context.Context) error {
	app.healthChecker.Start(ctx)

	if err := app.gateway.Start(ctx); err != nil {
		app.healthChecker.Stop()
		return fmt.Errorf("failed to start gateway: %w", err)
	}

	if app.admin != nil {
		if err := app.admin.Start(ctx); err != nil {
			_ = app.gateway.Stop(ctx)
			app.healthChecker.Stop()
			return fmt.Errorf("failed to start admin server: %w", err)
		}
		app.logger.Info("admin server started", observability.String("address", app.admin.Addr()))
	}
	return nil
}

func initTracer(cfg *config.Config) (*observability.Tracer, error) {
	tc := cfg.Observability.Tracing
	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:  tc.ServiceName,
		OTLPEndpoint: tc.OTLPEndpoint,
		SamplingRate: tc.SamplingRate,
		Enabled:      tc.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	return tracer, nil
}

func buildRegistry(cfg *config.Config) (*backend.Registry, error) {
	backends := make([]*backend.Backend, 0, len(cfg.Backends))
	for _, b := range cfg.Backends {
		backends = append(backends, backend.New(b.Name, b.DisplayName, b.Host, b.Port))
	}
	registry, err := backend.NewRegistry(backends...)
	if err != nil {
		return nil, fmt.Errorf("failed to build backend registry: %w", err)
	}
	return registry, nil
}

func buildRouter(cfg *config.Config) *router.Router {
	rules := make([]router.Rule, 0, len(cfg.Backends))
	for _, b := range cfg.Backends {
		rules = append(rules, router.Rule{Backend: b.Name, Prefixes: b.Prefixes, Keywords: b.Keywords})
	}
	return router.New(rules, cfg.DefaultBackend)
}

func newBackoff(rc config.RetryConfig) (retry.Backoff, error) {
	return retry.NewBackoff(retry.BackoffType(rc.Backoff), rc.BaseDelay.Duration(), rc.MaxDelay.Duration())
}

// writeTimeoutMargin leaves room to write the response after the last attempt.
const writeTimeoutMargin = 10 * time.Second

// writeTimeout returns a server write timeout long enough for the worst-case
// retry sequence: every attempt timing out plus every backoff wait. It is
// never below gateway.DefaultWriteTimeout.
func writeTimeout(rc config.RetryConfig, backoff retry.Backoff) time.Duration {
	budget := time.Duration(rc.MaxAttempts) * rc.AttemptTimeout.Duration()
	for attempt := 1; attempt < rc.MaxAttempts; attempt++ {
		budget += backoff.Next(attempt)
	}
	return max(budget+writeTimeoutMargin, gateway.DefaultWriteTimeout)
}

func buildEngine(
	cfg *config.Config,
	backoff retry.Backoff,
	logger observability.Logger,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
) *proxy.Engine {
	rc := cfg.Retry
	opts := []proxy.Option{
		proxy.WithClient(backend.NewClient(backend.DefaultPoolConfig())),
		proxy.WithRetryConfig(&retry.Config{MaxAttempts: rc.MaxAttempts, Backoff: backoff}),
		proxy.WithAttemptTimeout(rc.AttemptTimeout.Duration()),
		proxy.WithLogger(logger),
		proxy.WithMetrics(metrics),
		proxy.WithTracer(tracer),
	}

	if cb := cfg.CircuitBreaker; cb.Enabled {
		opts = append(opts, proxy.WithBreakers(proxy.NewBreakerSet(proxy.BreakerConfig{
			MaxRequests:      cb.MaxRequests,
			Interval:         cb.Interval.Duration(),
			Timeout:          cb.Timeout.Duration(),
			FailureThreshold: cb.FailureThreshold,
		}, logger, metrics)))
	}

	return proxy.New(opts...)
}

// initLimiter builds the rate limiter. A redis store gets a client owned by
// the application so the admin health check can ping it too.
func (app *application) initLimiter() error {
	rl := app.config.RateLimit

	if ratelimit.Store(rl.Store) == ratelimit.StoreRedis {
		app.redisClient = redis.NewClient(&redis.Options{
			Addr:     rl.Redis.Address,
			Password: rl.Redis.Password,
			DB:       rl.Redis.DB,
		})
		app.limiter = ratelimit.NewRedisLimiterWithClient(app.redisClient, ratelimit.RedisConfig{
			Prefix:   rl.Redis.Prefix,
			Requests: rl.Requests,
			Window:   rl.Window.Duration(),
		}, app.logger)
		return nil
	}

	limiter, err := ratelimit.NewLimiter(ratelimit.FactoryConfig{
		Algorithm: ratelimit.Algorithm(rl.Algorithm),
		Store:     ratelimit.Store(rl.Store),
		Requests:  rl.Requests,
		Window:    rl.Window.Duration(),
		Burst:     rl.Burst,
		Logger:    app.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create rate limiter: %w", err)
	}
	app.limiter = limiter
	return nil
}

// newAdminEngine serves health probes and Prometheus metrics.
func newAdminEngine(checker *health.Checker, metrics *observability.Metrics, metricsPath string) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	health.NewHandler(checker).RegisterRoutes(engine)
	engine.GET(metricsPath, gin.WrapH(metrics.Handler()))

	return engine
}
