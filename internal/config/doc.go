// Package config provides the gateway's configuration model, YAML loading,
// validation and file watching.
//
// # Configuration Loading
//
// A file is overlaid on DefaultConfig, so it only needs the keys it
// changes. ${VAR} and ${VAR:-default} are replaced from the environment
// before parsing; $$ produces a literal dollar sign.
//
//	cfg, found, err := config.LoadOrDefault("configs/gateway.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := config.ValidateConfig(cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// # File Watching
//
//	watcher, err := config.NewWatcher(path, func(cfg *config.Config) {
//	    // apply the reloadable subset
//	}, config.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := watcher.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer watcher.Stop()
package config
