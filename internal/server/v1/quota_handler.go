package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/prism-copy/internal/core/domain"
	"github.com/nulzo/prism-copy/internal/quota"
)

type QuotaService interface {
	Info(ctx context.Context) (quota.Info, error)
	Reset(ctx context.Context) error
}

type QuotaHandler struct {
	quota QuotaService
}

func NewQuotaHandler(q QuotaService) *QuotaHandler {
	return &QuotaHandler{quota: q}
}

// GET /v1/quota
func (h *QuotaHandler) Get(c *gin.Context) {
	info, err := h.quota.Info(c.Request.Context())
	if err != nil {
		_ = c.Error(domain.InternalError("Failed to read quota", err))
		return
	}
	c.JSON(http.StatusOK, info)
}

// POST /v1/quota/reset
func (h *QuotaHandler) Reset(c *gin.Context) {
	if err := h.quota.Reset(c.Request.Context()); err != nil {
		_ = c.Error(domain.InternalError("Failed to reset quota", err))
		return
	}
	c.Status(http.StatusNoContent)
}
