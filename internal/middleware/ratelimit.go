package middleware

import (
	"math"
	"net"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ugcstudio/api/internal/limiter"
	"github.com/ugcstudio/api/pkg/response"
)

type RateLimiter struct {
	limiter *limiter.Limiter
	log     *zap.Logger
}

func NewRateLimiter(l *limiter.Limiter, log *zap.Logger) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{limiter: l, log: log}
}

// PerIP limits requests by client address.
func (rl *RateLimiter) PerIP() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := ClientIP(c)

		d, err := rl.limiter.CheckAndConsume(c.UserContext(), ip)
		if err != nil {
			// If the store fails, allow the request but log the error
			rl.log.Error("ratelimit.store_failed", zap.String("ip", ip), zap.Error(err))
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			retry := d.RetryAfter(rl.limiter.Now())
			c.Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			rl.log.Info("ratelimit.rejected", zap.String("ip", ip))
			return response.RateLimited(c)
		}

		return c.Next()
	}
}

// ClientIP returns the first valid address in X-Forwarded-For, falling back
// to the connection address.
func ClientIP(c *fiber.Ctx) string {
	if xf := c.Get(fiber.HeaderXForwardedFor); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			ip := strings.TrimSpace(part)
			if ip == "" {
				continue
			}
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}
	if ip := c.IP(); ip != "" {
		return ip
	}
	return "unknown"
}
