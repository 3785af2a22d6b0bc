package backend

import (
	"net"
	"net/http"
	"time"
)

// PoolConfig contains connection pool configuration for upstream calls.
type PoolConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	DialTimeout         time.Duration
}

// DefaultPoolConfig returns default pool configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 32,
		MaxConnsPerHost:     0,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         5 * time.Second,
	}
}

// NewTransport returns the transport shared by the proxy and the health
// prober. Compression is left to the client and backend so bodies and
// Content-Encoding pass through untouched. Timeouts are per request, via
// context.
func NewTransport(cfg PoolConfig) *http.Transport {
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		DisableCompression:  true,
	}
}

// NewClient wraps NewTransport in a client that never follows redirects,
// so upstream 3xx responses reach the caller unchanged.
func NewClient(cfg PoolConfig) *http.Client {
	return &http.Client{
		Transport: NewTransport(cfg),
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
