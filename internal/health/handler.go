package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler exposes a Checker on a gin engine.
type Handler struct {
	checker *Checker
}

// NewHandler creates a new health handler.
func NewHandler(checker *Checker) *Handler {
	return &Handler{checker: checker}
}

// LivenessHandler answers 200 while the process is up.
func (h *Handler) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
		})
	}
}

// ReadinessHandler answers 503 when any check is unhealthy.
func (h *Handler) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := h.checker.Readiness(c.Request.Context())
		c.JSON(statusCode(resp.Status), resp)
	}
}

// HealthHandler reports every check with version and uptime.
func (h *Handler) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := h.checker.Health(c.Request.Context())
		c.JSON(statusCode(resp.Status), resp)
	}
}

// RegisterRoutes registers /health, /live and /ready.
func (h *Handler) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/health", h.HealthHandler())
	engine.GET("/live", h.LivenessHandler())
	engine.GET("/ready", h.ReadinessHandler())
}

func statusCode(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
