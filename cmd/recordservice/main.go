// Package main runs a demo JSON-RPC record service for the gateway to
// route to.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/vyrodovalexey/svcgw/internal/gateway"
	"github.com/vyrodovalexey/svcgw/internal/observability"
	"github.com/vyrodovalexey/svcgw/internal/recordsvc"
)

const shutdownTimeout = 10 * time.Second

// defaultPorts are the ports the default gateway configuration expects.
var defaultPorts = map[string]int{
	"user":    8080,
	"product": 8081,
}

type cliFlags struct {
	kind      string
	host      string
	port      int
	dbPath    string
	logLevel  string
	logFormat string
}

func main() {
	flags := parseFlags(os.Args[1:])

	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(flags, logger); err != nil {
		_ = logger.Sync()
		logger.Fatal("record service failed", observability.Error(err))
	}
}

func parseFlags(args []string) cliFlags {
	fset := flag.NewFlagSet("recordservice", flag.ExitOnError)
	kind := fset.String("kind", "user", "Record kind served (user, product, ...)")
	host := fset.String("host", "127.0.0.1", "Listen host")
	port := fset.Int("port", 0, "Listen port (default 8080 for user, 8081 for product)")
	dbPath := fset.String("db", ":memory:", "SQLite database path")
	logLevel := fset.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFormat := fset.String("log-format", "console", "Log format (json, console)")
	_ = fset.Parse(args)

	f := cliFlags{
		kind:      *kind,
		host:      *host,
		port:      *port,
		dbPath:    *dbPath,
		logLevel:  *logLevel,
		logFormat: *logFormat,
	}
	if f.port == 0 {
		f.port = defaultPorts[f.kind]
	}
	return f
}

func run(flags cliFlags, logger observability.Logger) error {
	if flags.kind == "" {
		return fmt.Errorf("kind cannot be empty")
	}

	store, err := recordsvc.OpenStore(flags.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := recordsvc.NewService(flags.kind, store, logger)
	address := net.JoinHostPort(flags.host, strconv.Itoa(flags.port))
	listener := gateway.NewListener(flags.kind+"-service", address, svc,
		gateway.WithListenerLogger(logger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := listener.Start(ctx); err != nil {
		return err
	}
	logger.Info("record service started",
		observability.String("kind", flags.kind),
		observability.String("address", listener.Addr()),
		observability.Any("methods", svc.Methods()),
	)

	<-ctx.Done()
	logger.Info("shutting down record service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return listener.Stop(shutdownCtx)
}
