package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/svcgw/internal/config"
	"github.com/vyrodovalexey/svcgw/internal/gateway"
	"github.com/vyrodovalexey/svcgw/internal/observability"
)

// runGateway starts the application and blocks until SIGINT or SIGTERM, or
// until a listener stops serving on its own, which is fatal.
func runGateway(app *application, configPath string, logger observability.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.start(ctx); err != nil {
		fatalWithSync(logger, "failed to start", observability.Error(err))
		return
	}

	watcher := startConfigWatcher(ctx, app, configPath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig, err := app.wait(sigCh)
	if err != nil {
		app.shutdown(watcher)
		fatalWithSync(logger, "listener failed", observability.Error(err))
		return
	}
	logger.Info("received shutdown signal", observability.String("signal", sig.String()))

	app.shutdown(watcher)
}

// wait blocks until a signal arrives or a started listener fails.
func (app *application) wait(sigCh <-chan os.Signal) (os.Signal, error) {
	var adminErrs <-chan error
	if app.admin != nil {
		adminErrs = app.admin.Errors()
	}

	select {
	case sig := <-sigCh:
		return sig, nil
	case err := <-app.gateway.Errors():
		return nil, err
	case err := <-adminErrs:
		return nil, err
	}
}

// shutdown stops components in reverse start order. Errors are logged and
// do not stop the remaining steps.
func (app *application) shutdown(watcher *config.Watcher) {
	logger := app.logger
	ctx, cancel := context.WithTimeout(context.Background(), gateway.DefaultShutdownTimeout)
	defer cancel()

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			logger.Error("failed to stop config watcher", observability.Error(err))
		}
		app.reloadMetrics.configWatcherStatus.Set(0)
	}

	if app.admin != nil {
		logger.Info("stopping admin server")
		if err := app.admin.Stop(ctx); err != nil {
			logger.Error("failed to stop admin server gracefully", observability.Error(err))
		}
	}

	if err := app.gateway.Stop(ctx); err != nil {
		logger.Error("failed to stop gateway gracefully", observability.Error(err))
	}

	app.healthChecker.Stop()

	if err := app.limiter.Close(); err != nil {
		logger.Error("failed to close rate limiter", observability.Error(err))
	}
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			logger.Error("failed to close redis client", observability.Error(err))
		}
	}

	if err := app.tracer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	snap := app.handler.Stats().Snapshot()
	logger.Info("gateway stopped",
		observability.Uint64("total_requests", snap.TotalRequests),
		observability.Uint64("successful_requests", snap.SuccessfulRequests),
		observability.Uint64("failed_requests", snap.FailedRequests),
	)
}
