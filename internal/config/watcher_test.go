package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/svcgw/internal/observability"
)

func TestNewWatcher(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "rate_limit:\n  requests: 10\n")
	logger := observability.NopLogger()

	w, err := NewWatcher(path, nil,
		WithDebounceDelay(10*time.Millisecond),
		WithLogger(logger),
		WithErrorCallback(func(error) {}),
	)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	assert.True(t, filepath.IsAbs(w.path))
	assert.Equal(t, 10*time.Millisecond, w.debounce)
	assert.Equal(t, logger, w.logger)
	assert.NotNil(t, w.onError)
	assert.Nil(t, w.GetLastConfig())
}

func TestWatcher_StartRejectsInvalidFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "rate_limit:\n  requests: 0\n")
	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	assert.Error(t, w.Start(context.Background()))
}

// replaceFile swaps content in with a rename so the watcher never reads a
// half-written file.
func replaceFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := filepath.Join(filepath.Dir(path), ".tmp-"+filepath.Base(path))
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0o600))
	require.NoError(t, os.Rename(tmp, path))
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "rate_limit:\n  requests: 10\n")

	var mu sync.Mutex
	var seen []int
	var errs []error
	w, err := NewWatcher(path, func(cfg *Config) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, cfg.RateLimit.Requests)
	},
		WithDebounceDelay(20*time.Millisecond),
		WithErrorCallback(func(err error) {
			mu.Lock()
			defer mu.Unlock()
			errs = append(errs, err)
		}),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop() }()
	assert.Equal(t, 10, w.GetLastConfig().RateLimit.Requests)

	replaceFile(t, path, "rate_limit:\n  requests: 20\n")
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1] == 20
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 20, w.GetLastConfig().RateLimit.Requests)

	// An invalid file is reported and the previous configuration is kept.
	replaceFile(t, path, "rate_limit:\n  requests: -1\n")
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) > 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 20, w.GetLastConfig().RateLimit.Requests)
}

func TestWatcher_ForceReload(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "rate_limit:\n  requests: 10\n")
	calls := 0
	w, err := NewWatcher(path, func(*Config) { calls++ })
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	require.NoError(t, w.ForceReload())
	assert.Equal(t, 1, calls)
	assert.Equal(t, 10, w.GetLastConfig().RateLimit.Requests)

	require.NoError(t, os.WriteFile(path, []byte("listen: nope\n"), 0o600))
	assert.Error(t, w.ForceReload())
	assert.Equal(t, 1, calls)
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	t.Parallel()

	w, err := NewWatcher(writeConfig(t, ""), nil)
	require.NoError(t, err)
	assert.NoError(t, w.Stop())
}
