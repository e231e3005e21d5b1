package server

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/nulzo/prism-copy/internal/config"
	"github.com/nulzo/prism-copy/internal/server/middleware"
	v1 "github.com/nulzo/prism-copy/internal/server/v1"
	"github.com/nulzo/prism-copy/internal/server/validator"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// writeSlack covers response encoding and cooldown bookkeeping.
const writeSlack = 5 * time.Second

// FailoverClient is what the HTTP layer needs from failover.Client.
type FailoverClient interface {
	v1.Generator
	v1.ProviderRegistry
}

// Deps are the services the routes are built on.
type Deps struct {
	Failover FailoverClient
	Quota    v1.QuotaService
	Features v1.FeatureRunner
	PoolSize func() int
	Version  string
}

type Server struct {
	router    *gin.Engine
	config    *config.Config
	logger    *zap.Logger
	deps      Deps
	validator *validator.Validator
	limiter   *middleware.RateLimiter
}

func New(cfg *config.Config, logger *zap.Logger, deps Deps) *Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(ginzap.RecoveryWithZap(logger, true))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger(logger))
	if cfg.Tracing.Enabled {
		engine.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}

	if deps.PoolSize == nil {
		deps.PoolSize = func() int { return len(deps.Failover.ProviderStatus()) }
	}

	s := &Server{
		router:    engine,
		config:    cfg,
		logger:    logger,
		deps:      deps,
		validator: validator.New(),
		limiter:   middleware.NewRateLimiter(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst, logger),
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer wraps the handler with the timeouts used in production.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              ":" + s.config.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.writeTimeout(),
		IdleTimeout:       120 * time.Second,
	}
}

// writeTimeout covers one attempt per pool member plus a full async poll.
// Zero disables the limit when no per-request budget is configured.
func (s *Server) writeTimeout() time.Duration {
	fc := s.config.Failover
	if fc.RequestTimeout <= 0 {
		return 0
	}
	attempts := s.deps.PoolSize()
	if attempts < 1 {
		attempts = 1
	}
	poll := fc.PollInterval * time.Duration(fc.PollMaxAttempts)
	return time.Duration(attempts)*fc.RequestTimeout + poll + writeSlack
}
