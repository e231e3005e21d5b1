package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/prism-copy/internal/core/domain"
	"github.com/nulzo/prism-copy/internal/failover"
	"github.com/nulzo/prism-copy/internal/server/validator"
)

// Generator produces text from the first provider that answers.
type Generator interface {
	GetResponse(ctx context.Context, prompt, systemPrompt string) (*failover.Response, error)
}

type GenerateRequest struct {
	Prompt       string `json:"prompt" binding:"required,max=8000"`
	SystemPrompt string `json:"system_prompt" binding:"max=4000"`
}

type GenerationHandler struct {
	generator Generator
	validator *validator.Validator
}

func NewGenerationHandler(generator Generator, v *validator.Validator) *GenerationHandler {
	return &GenerationHandler{generator: generator, validator: v}
}

// Generate runs a prompt through the failover client.
//
// POST /v1/generate
func (h *GenerationHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(h.validator.ParseError(err)))
		return
	}

	resp, err := h.generator.GetResponse(c.Request.Context(), req.Prompt, req.SystemPrompt)
	if err != nil {
		_ = c.Error(domain.ProvidersUnavailableError(err))
		return
	}

	c.JSON(http.StatusOK, resp)
}
