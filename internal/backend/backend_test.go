package backend

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	b := New("user-service", "User Service", "127.0.0.1", 8080)

	assert.Equal(t, "user-service", b.Name())
	assert.Equal(t, "User Service", b.DisplayName())
	assert.Equal(t, "127.0.0.1:8080", b.Address())
	assert.Equal(t, "http://127.0.0.1:8080", b.URL())
	assert.Equal(t, "user-service (127.0.0.1:8080)", b.String())

	h := b.Health()
	assert.True(t, h.Healthy)
	assert.Zero(t, h.ConsecutiveFailures)
	assert.True(t, h.LastCheck.IsZero())
}

func TestNew_DisplayNameFallback(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "svc", New("svc", "", "localhost", 1).DisplayName())
}

func TestBackend_AddressIPv6(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "http://[::1]:9000", New("v6", "", "::1", 9000).URL())
}

func TestBackend_RecordProbe(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		probes      []bool
		wantHealthy bool
		wantFails   uint32
		wantChanged bool
	}{
		{name: "one failure stays healthy", probes: []bool{false}, wantHealthy: true, wantFails: 1},
		{name: "two failures stay healthy", probes: []bool{false, false}, wantHealthy: true, wantFails: 2},
		{name: "third failure flips", probes: []bool{false, false, false}, wantHealthy: false, wantFails: 3, wantChanged: true},
		{name: "fourth failure keeps counting", probes: []bool{false, false, false, false}, wantHealthy: false, wantFails: 4},
		{name: "one success recovers", probes: []bool{false, false, false, true}, wantHealthy: true, wantChanged: true},
		{name: "success resets count", probes: []bool{false, false, true, false, false}, wantHealthy: true, wantFails: 2},
		{name: "success on healthy", probes: []bool{true}, wantHealthy: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := New("svc", "", "localhost", 1)
			var (
				h       Health
				changed bool
			)
			for i, ok := range tt.probes {
				h, changed = b.RecordProbe(ok, now.Add(time.Duration(i)*time.Second), 3)
			}

			assert.Equal(t, tt.wantHealthy, h.Healthy)
			assert.Equal(t, tt.wantFails, h.ConsecutiveFailures)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, now.Add(time.Duration(len(tt.probes)-1)*time.Second), h.LastCheck)
			assert.Equal(t, h, b.Health())
		})
	}
}

func TestBackend_RecordProbe_ZeroThresholdUsesDefault(t *testing.T) {
	t.Parallel()

	b := New("svc", "", "localhost", 1)
	for range DefaultUnhealthyThreshold - 1 {
		b.RecordProbe(false, time.Now(), 0)
	}
	assert.True(t, b.IsHealthy())

	b.RecordProbe(false, time.Now(), 0)
	assert.False(t, b.IsHealthy())
}

func TestBackend_ConcurrentReadsDuringWrites(t *testing.T) {
	t.Parallel()

	b := New("svc", "", "localhost", 1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 1000 {
			b.RecordProbe(i%4 != 0, time.Now(), 3)
		}
	}()
	go func() {
		defer wg.Done()
		for range 1000 {
			_ = b.IsHealthy()
			_ = b.Health()
		}
	}()
	wg.Wait()

	require.NotNil(t, b)
}
