package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/prism-copy/internal/core/domain"
	"github.com/nulzo/prism-copy/internal/failover"
	"go.uber.org/zap"
)

// ErrorHandler renders the last error attached by a handler as an RFC 9457 problem.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		problem := toProblem(err)
		if problem.Instance == "" {
			problem.Instance = c.Request.URL.Path
		}

		if problem.Log != nil {
			logger.Error("Request failed",
				zap.Int("status", problem.Status),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString(RequestIDKey)),
				zap.Error(problem.Log),
			)
		}

		c.Header("Content-Type", "application/problem+json")
		c.JSON(problem.Status, problem)
		c.Abort()
	}
}

func toProblem(err error) *domain.Problem {
	var problem *domain.Problem
	if errors.As(err, &problem) {
		return problem
	}
	if errors.Is(err, failover.ErrUnavailable) {
		return domain.ProvidersUnavailableError(err)
	}
	return domain.New(
		http.StatusInternalServerError,
		"Internal Server Error",
		"An unexpected error occurred.",
		domain.WithLog(err),
	)
}
