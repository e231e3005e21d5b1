package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/prism-copy/internal/copywriter"
	"github.com/nulzo/prism-copy/internal/core/domain"
	"github.com/nulzo/prism-copy/internal/failover"
	"github.com/nulzo/prism-copy/internal/server/validator"
)

type FeatureRunner interface {
	Run(ctx context.Context, feature string, req copywriter.Request) (*copywriter.Result, error)
}

type FeatureHandler struct {
	runner    FeatureRunner
	quota     QuotaService
	validator *validator.Validator
}

func NewFeatureHandler(runner FeatureRunner, q QuotaService, v *validator.Validator) *FeatureHandler {
	return &FeatureHandler{runner: runner, quota: q, validator: v}
}

// Run executes a quota-gated copywriting feature.
//
// POST /v1/features/:feature
func (h *FeatureHandler) Run(c *gin.Context) {
	var req copywriter.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(h.validator.ParseError(err)))
		return
	}

	feature := c.Param("feature")
	res, err := h.runner.Run(c.Request.Context(), feature, req)
	if err != nil {
		_ = c.Error(h.problem(c.Request.Context(), err))
		return
	}

	c.JSON(http.StatusOK, res)
}

// List returns the supported feature names.
//
// GET /v1/features
func (h *FeatureHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"features": copywriter.Features()})
}

func (h *FeatureHandler) problem(ctx context.Context, err error) *domain.Problem {
	switch {
	case errors.Is(err, copywriter.ErrUnknownFeature):
		return domain.BadRequestError(err.Error(),
			domain.WithExtension("features", copywriter.Features()))
	case errors.Is(err, copywriter.ErrMissingInput):
		return domain.BadRequestError(err.Error())
	case errors.Is(err, copywriter.ErrQuotaExceeded):
		info, qerr := h.quota.Info(ctx)
		if qerr != nil {
			return domain.QuotaExceededError(0, 0)
		}
		return domain.QuotaExceededError(info.DailyUsed, info.DailyLimit)
	case errors.Is(err, failover.ErrUnavailable):
		return domain.ProvidersUnavailableError(err)
	default:
		return domain.InternalError("Failed to run feature", err)
	}
}
