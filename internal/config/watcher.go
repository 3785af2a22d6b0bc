package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vyrodovalexey/svcgw/internal/observability"
)

// DefaultDebounceDelay collapses the bursts of events editors produce on save.
const DefaultDebounceDelay = 100 * time.Millisecond

// ConfigCallback is called with each valid reloaded configuration.
type ConfigCallback func(*Config)

// ErrorCallback is called when a reload fails or fsnotify reports an error.
type ErrorCallback func(error)

// Watcher reloads a configuration file when it changes. Invalid files are
// reported and otherwise ignored; the last good configuration stays current.
type Watcher struct {
	path     string
	fs       *fsnotify.Watcher
	onChange ConfigCallback
	onError  ErrorCallback
	logger   observability.Logger
	debounce time.Duration

	mu      sync.RWMutex
	current *Config
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets how long the file must be quiet before a reload.
func WithDebounceDelay(delay time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = delay
	}
}

// WithLogger sets the watcher's logger.
func WithLogger(logger observability.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithErrorCallback sets the error callback.
func WithErrorCallback(callback ErrorCallback) WatcherOption {
	return func(w *Watcher) {
		w.onError = callback
	}
}

// NewWatcher creates a watcher for path. Nothing is read until Start.
func NewWatcher(path string, callback ConfigCallback, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		path:     abs,
		fs:       fsw,
		onChange: callback,
		logger:   observability.NopLogger(),
		debounce: DefaultDebounceDelay,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start loads and validates the file, then watches its directory so
// atomic renames by editors are seen too. Calling Start twice is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()
	if running {
		return nil
	}

	cfg, err := w.load()
	if err != nil {
		return err
	}
	if err := w.fs.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	w.mu.Lock()
	w.current = cfg
	w.running = true
	w.mu.Unlock()

	w.logger.Info("watching configuration file", observability.String("path", w.path))
	go w.loop(ctx)
	return nil
}

// Stop ends the watch loop and releases the fsnotify watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stop)
		<-w.done
	}
	return w.fs.Close()
}

// GetLastConfig returns the last configuration that loaded and validated.
func (w *Watcher) GetLastConfig() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// ForceReload reads the file now. A valid configuration becomes current and
// is passed to the callback.
func (w *Watcher) ForceReload() error {
	cfg, err := w.load()
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	if w.onChange != nil {
		w.onChange(cfg)
	}
	return nil
}

func (w *Watcher) load() (*Config, error) {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	// Created stopped; each relevant event pushes the deadline out.
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				w.logger.Debug("config file changed",
					observability.String("op", event.Op.String()),
				)
				timer.Reset(w.debounce)
			}

		case <-timer.C:
			w.reload()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", observability.Error(err))
			w.report(err)
		}
	}
}

// relevant reports whether event may have changed the watched file's
// contents. Other files in the directory are ignored.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

func (w *Watcher) reload() {
	if err := w.ForceReload(); err != nil {
		w.logger.Error("configuration reload failed, keeping previous configuration",
			observability.String("path", w.path),
			observability.Error(err),
		)
		w.report(err)
		return
	}
	w.logger.Info("configuration reloaded", observability.String("path", w.path))
}

func (w *Watcher) report(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}
