// Package proxy forwards a buffered inbound request to one backend with a
// per-attempt timeout and bounded retries.
//
// Any HTTP response from the backend, whatever its status, ends the retry
// loop and is returned to the caller. Only transport failures (refused
// connections, resets, timeouts, truncated bodies) are retried. When every
// attempt fails, Forward returns an *ExhaustedError naming the backend.
package proxy
