package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/prism-copy/internal/core/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// idleTTL is how long a client's limiter is kept after its last request.
const (
	idleTTL    = 10 * time.Minute
	maxTracked = 4096
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	clients map[string]*client
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	logger  *zap.Logger
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(rps float64, burst int, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		clients: make(map[string]*client),
		rps:     rate.Limit(rps),
		burst:   burst,
		logger:  logger,
	}
}

func (rl *RateLimiter) getLimiter(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if cl, exists := rl.clients[ip]; exists {
		cl.lastSeen = now
		return cl.limiter
	}

	if len(rl.clients) >= maxTracked {
		rl.sweepLocked(now)
	}

	cl := &client{limiter: rate.NewLimiter(rl.rps, rl.burst), lastSeen: now}
	rl.clients[ip] = cl
	return cl.limiter
}

// Sweep drops limiters idle for longer than idleTTL.
func (rl *RateLimiter) Sweep(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.sweepLocked(now)
}

func (rl *RateLimiter) sweepLocked(now time.Time) int {
	removed := 0
	for ip, cl := range rl.clients {
		if now.Sub(cl.lastSeen) > idleTTL {
			delete(rl.clients, ip)
			removed++
		}
	}
	return removed
}

// Middleware returns the Gin middleware handler.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()
		limiter := rl.getLimiter(ip, now)

		if !limiter.Allow() {
			rl.logger.Warn("Rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", c.Request.URL.Path),
			)
			abort(c, domain.RateLimitError("rate limit exceeded"))
			return
		}

		c.Next()
	}
}
