// Package main is the entry point for the svcgw gateway.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/vyrodovalexey/svcgw/internal/config"
	"github.com/vyrodovalexey/svcgw/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	loadDotEnv()
	flags := parseFlags(os.Args[1:])

	if flags.showVersion {
		printVersion()
		return
	}

	configPath := config.ResolveConfigPath(flags.configPath)
	cfg, found, err := loadAndValidateConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "svcgw: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(flags, cfg)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting svcgw",
		observability.String("version", version),
		observability.String("config", configPath),
		observability.Bool("config_found", found),
	)
	logConfigSummary(cfg, logger)

	app, err := newApplication(cfg, logger)
	if err != nil {
		fatalWithSync(logger, "failed to initialize gateway", observability.Error(err))
		return
	}

	watchPath := ""
	if found {
		watchPath = configPath
	}
	runGateway(app, watchPath, logger)
}

// loadDotEnv reads .env from the working directory when present.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "svcgw: failed to load .env: %v\n", err)
	}
}

// parseFlags parses command line flags.
func parseFlags(args []string) cliFlags {
	fset := flag.NewFlagSet("svcgw", flag.ExitOnError)
	configPath := fset.String("config", "",
		"Path to configuration file (default $"+config.EnvConfigPath+" or "+config.DefaultConfigPath+")")
	logLevel := fset.String("log-level", getEnvOrDefault("SVCGW_LOG_LEVEL", ""),
		"Log level (debug, info, warn, error); overrides the config file")
	logFormat := fset.String("log-format", getEnvOrDefault("SVCGW_LOG_FORMAT", ""),
		"Log format (json, console); overrides the config file")
	showVersion := fset.Bool("version", false, "Show version information")
	_ = fset.Parse(args)

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("svcgw version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger builds the logger. Flags win over the config file.
func initLogger(flags cliFlags, cfg *config.Config) observability.Logger {
	logCfg := observability.DefaultLogConfig()
	logCfg.Level = firstNonEmpty(flags.logLevel, cfg.Observability.LogLevel, logCfg.Level)
	logCfg.Format = firstNonEmpty(flags.logFormat, cfg.Observability.LogFormat, logCfg.Format)

	logger, err := observability.NewLogger(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// loadAndValidateConfig loads the file at path, or defaults when it does
// not exist, and validates the result.
func loadAndValidateConfig(path string) (*config.Config, bool, error) {
	cfg, found, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, false, err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, found, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, found, nil
}

func logConfigSummary(cfg *config.Config, logger observability.Logger) {
	names := make([]string, 0, len(cfg.Backends))
	for _, b := range cfg.Backends {
		names = append(names, b.Name)
	}
	logger.Info("configuration loaded",
		observability.String("listen", cfg.Listen),
		observability.String("default_backend", cfg.DefaultBackend),
		observability.Any("backends", names),
		observability.String("rate_limit_algorithm", cfg.RateLimit.Algorithm),
		observability.String("rate_limit_store", cfg.RateLimit.Store),
		observability.Int("rate_limit_requests", cfg.RateLimit.Requests),
		observability.Bool("circuit_breaker", cfg.CircuitBreaker.Enabled),
		observability.Bool("admin", cfg.Observability.Admin.Enabled),
	)
}

// fatalWithSync flushes the logger before exiting.
func fatalWithSync(logger observability.Logger, msg string, fields ...observability.Field) {
	_ = logger.Sync()
	logger.Fatal(msg, fields...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
