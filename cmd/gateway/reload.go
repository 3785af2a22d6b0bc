package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/svcgw/internal/config"
	"github.com/vyrodovalexey/svcgw/internal/observability"
	"github.com/vyrodovalexey/svcgw/internal/ratelimit"
)

// reloadMetrics holds Prometheus metrics for configuration reloads. The
// collectors live in the gateway's registry so they appear on the admin
// /metrics endpoint.
type reloadMetrics struct {
	configReloadTotal       *prometheus.CounterVec
	configReloadLastSuccess prometheus.Gauge
	configWatcherStatus     prometheus.Gauge
}

func newReloadMetrics(m *observability.Metrics) *reloadMetrics {
	rm := &reloadMetrics{
		configReloadTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "svcgw",
				Name:      "config_reload_total",
				Help:      "Total number of configuration reloads by result",
			},
			[]string{"result"},
		),
		configReloadLastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "svcgw",
				Name:      "config_reload_last_success_timestamp",
				Help:      "Timestamp of the last applied configuration reload",
			},
		),
		configWatcherStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "svcgw",
				Name:      "config_watcher_running",
				Help:      "Whether the config file watcher is running (1=running, 0=stopped)",
			},
		),
	}

	m.Registry().MustRegister(rm.configReloadTotal, rm.configReloadLastSuccess, rm.configWatcherStatus)
	return rm
}

// startConfigWatcher watches path and applies reloadable changes. An empty
// path means the gateway runs on built-in defaults and nothing is watched.
func startConfigWatcher(ctx context.Context, app *application, path string) *config.Watcher {
	if path == "" {
		return nil
	}

	logger := app.logger
	rm := app.reloadMetrics

	watcher, err := config.NewWatcher(path, func(newCfg *config.Config) {
		applyConfig(app, newCfg)
	},
		config.WithLogger(logger),
		config.WithErrorCallback(func(err error) {
			rm.configReloadTotal.WithLabelValues("error").Inc()
		}),
	)
	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		rm.configWatcherStatus.Set(0)
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
		rm.configWatcherStatus.Set(0)
		return nil
	}

	rm.configWatcherStatus.Set(1)
	return watcher
}

// applyConfig applies the parts of newCfg that can change at runtime.
// Only the rate limit request count is reloadable; every other changed
// section is logged as needing a restart.
func applyConfig(app *application, newCfg *config.Config) {
	logger := app.logger
	changed := config.ChangedSections(app.config, newCfg)
	if len(changed) == 0 {
		logger.Debug("configuration unchanged")
		return
	}

	for _, section := range changed {
		if section != "rate_limit" {
			logger.Warn("configuration section changed; restart to apply",
				observability.String("section", section),
			)
		}
	}

	old := app.config.RateLimit
	upd := newCfg.RateLimit
	if old.Requests != upd.Requests {
		if rc, ok := app.limiter.(ratelimit.Reconfigurable); ok {
			rc.SetLimit(upd.Requests)
			logger.Info("rate limit updated",
				observability.Int("old_requests", old.Requests),
				observability.Int("new_requests", upd.Requests),
			)
		} else {
			logger.Warn("rate limiter cannot be reconfigured; restart to apply")
		}
	}
	if rateLimitNeedsRestart(old, upd) {
		logger.Warn("rate limit settings other than requests changed; restart to apply")
	}

	// Keep the running values for sections that were not applied so the
	// next diff still reports them.
	applied := *app.config
	applied.RateLimit.Requests = upd.Requests
	app.config = &applied

	app.reloadMetrics.configReloadTotal.WithLabelValues("success").Inc()
	app.reloadMetrics.configReloadLastSuccess.Set(float64(time.Now().Unix()))
}

func rateLimitNeedsRestart(old, upd config.RateLimitConfig) bool {
	upd.Requests = old.Requests
	return len(config.ChangedSections(
		&config.Config{RateLimit: old},
		&config.Config{RateLimit: upd},
	)) > 0
}
