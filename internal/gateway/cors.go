package gateway

import "net/http"

// CORS header values sent by the gateway.
const (
	corsAllowOrigin  = "*"
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Content-Type"
)

const (
	headerAllowOrigin  = "Access-Control-Allow-Origin"
	headerAllowMethods = "Access-Control-Allow-Methods"
	headerAllowHeaders = "Access-Control-Allow-Headers"
)

// writePreflight answers an OPTIONS request without touching a backend.
func writePreflight(w http.ResponseWriter) {
	h := w.Header()
	h.Set(headerAllowOrigin, corsAllowOrigin)
	h.Set(headerAllowMethods, corsAllowMethods)
	h.Set(headerAllowHeaders, corsAllowHeaders)
	w.WriteHeader(http.StatusOK)
}
