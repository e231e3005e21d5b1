package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	startTime time.Time
	version   string
	providers func() int
}

// NewHealthHandler reports uptime and how many providers made it into the pool.
func NewHealthHandler(version string, providers func() int) *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		version:   version,
		providers: providers,
	}
}

// Health is used by load balancers and monitoring.
//
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	status := "healthy"
	n := h.providers()
	if n == 0 {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"version":   h.version,
		"providers": n,
		"uptime":    time.Since(h.startTime).String(),
		"time":      time.Now().UTC().Format(time.RFC3339),
	})
}
