package web

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// API request limits per client IP. Renderers poll at frame rate at most.
const (
	apiRate  = rate.Limit(60)
	apiBurst = 120
)

type rateLimiter struct {
	mu     sync.Mutex
	bucket map[string]*rate.Limiter
	rate   rate.Limit
	burst  int
}

func newRateLimiter(r rate.Limit, burst int) *rateLimiter {
	return &rateLimiter{
		bucket: make(map[string]*rate.Limiter),
		rate:   r,
		burst:  burst,
	}
}

func (r *rateLimiter) limiterFor(ip string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.bucket[ip]
	if !ok {
		l = rate.NewLimiter(r.rate, r.burst)
		r.bucket[ip] = l
	}
	return l
}

// rateLimit rejects API requests over the per-IP limit.
func (s *Server) rateLimit(c *fiber.Ctx) error {
	ip := c.IP()
	if !s.limits.limiterFor(ip).Allow() {
		s.logger.Warn("too many requests", "ip", ip)
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "too many requests",
		})
	}
	return c.Next()
}
