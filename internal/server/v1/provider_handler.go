package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/prism-copy/internal/failover"
)

// ProviderRegistry exposes the cooldown state of the pool.
type ProviderRegistry interface {
	ProviderStatus() map[string]failover.Status
	ResetFailedProviders()
}

type ProviderHandler struct {
	registry ProviderRegistry
}

func NewProviderHandler(registry ProviderRegistry) *ProviderHandler {
	return &ProviderHandler{registry: registry}
}

// Status lists every configured provider with its eligibility.
//
// GET /v1/providers
func (h *ProviderHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.ProviderStatus())
}

// Reset clears every cooldown entry.
//
// POST /v1/providers/reset
func (h *ProviderHandler) Reset(c *gin.Context) {
	h.registry.ResetFailedProviders()
	c.Status(http.StatusNoContent)
}
