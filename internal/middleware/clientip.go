package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIPExtractor extracts the real client IP from requests,
// handling X-Forwarded-For with trusted proxy validation.
// When no trusted proxies are configured, only RemoteAddr is used.
type ClientIPExtractor struct {
	trusted []netip.Prefix
}

// NewClientIPExtractor creates a new ClientIPExtractor with the given
// trusted proxy CIDRs or single addresses. Invalid entries are skipped;
// use ParseTrustedProxies to reject them instead.
func NewClientIPExtractor(trustedProxies []string) *ClientIPExtractor {
	prefixes := make([]netip.Prefix, 0, len(trustedProxies))
	for _, p := range trustedProxies {
		if prefix, err := parseTrusted(p); err == nil {
			prefixes = append(prefixes, prefix)
		}
	}
	return &ClientIPExtractor{trusted: prefixes}
}

// ParseTrustedProxies validates a trusted proxy list.
func ParseTrustedProxies(trustedProxies []string) error {
	for _, p := range trustedProxies {
		if _, err := parseTrusted(p); err != nil {
			return err
		}
	}
	return nil
}

func parseTrusted(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// Extract returns the client identity for r. Without trusted proxies it is
// RemoteAddr's host. When RemoteAddr is a trusted proxy, X-Forwarded-For
// is walked right to left and the first untrusted address wins.
func (e *ClientIPExtractor) Extract(r *http.Request) string {
	remoteIP := stripPort(r.RemoteAddr)

	if len(e.trusted) == 0 || !e.isTrusted(remoteIP) {
		return remoteIP
	}

	xff := r.Header.Get(HeaderXForwardedFor)
	if xff == "" {
		return remoteIP
	}

	hops := strings.Split(xff, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		ip := strings.TrimSpace(hops[i])
		if ip == "" {
			continue
		}
		if !e.isTrusted(ip) {
			return ip
		}
	}
	return remoteIP
}

func (e *ClientIPExtractor) isTrusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range e.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// stripPort removes the port from an address string.
// Handles both IPv4 ("192.168.1.1:8080") and IPv6 ("[::1]:8080") formats.
func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
