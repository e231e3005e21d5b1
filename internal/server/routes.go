package server

import (
	"github.com/gin-gonic/gin"
	"github.com/nulzo/prism-copy/internal/core/domain"
	"github.com/nulzo/prism-copy/internal/server/middleware"
	v1 "github.com/nulzo/prism-copy/internal/server/v1"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) SetupRoutes() {
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.ErrorHandler(s.logger))
	s.router.NoRoute(func(c *gin.Context) {
		_ = c.Error(domain.NotFoundError("No route for "+c.Request.Method+" "+c.Request.URL.Path,
			domain.WithInstance(c.Request.URL.Path)))
	})

	healthHandler := v1.NewHealthHandler(s.deps.Version, s.deps.PoolSize)
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/v1")
	api.Use(middleware.Auth(s.config.Server.APIKeys))
	api.Use(s.limiter.Middleware())
	{
		generation := v1.NewGenerationHandler(s.deps.Failover, s.validator)
		api.POST("/generate", generation.Generate)

		providers := v1.NewProviderHandler(s.deps.Failover)
		api.GET("/providers", providers.Status)
		api.POST("/providers/reset", providers.Reset)

		quota := v1.NewQuotaHandler(s.deps.Quota)
		api.GET("/quota", quota.Get)
		api.POST("/quota/reset", quota.Reset)

		features := v1.NewFeatureHandler(s.deps.Features, s.deps.Quota, s.validator)
		api.GET("/features", features.List)
		api.POST("/features/:feature", features.Run)
	}
}
