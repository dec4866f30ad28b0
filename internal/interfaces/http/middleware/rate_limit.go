package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const rateWindow = time.Minute

// Counter counts hits in a fixed window shared across instances
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimit allows perMinute requests per client IP. Counting happens in the shared
// counter; when that is nil or failing, a per-process token bucket takes over.
func RateLimit(perMinute int, counter Counter, logger *logrus.Logger) gin.HandlerFunc {
	local := newLocalLimiter(perMinute)

	return func(c *gin.Context) {
		if perMinute <= 0 {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		c.Header("X-RateLimit-Limit", strconv.Itoa(perMinute))

		if counter != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
			count, err := counter.Hit(ctx, "rate_limit:"+clientIP, rateWindow)
			cancel()
			if err == nil {
				remaining := int64(perMinute) - count
				if remaining < 0 {
					remaining = 0
				}
				c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
				if count > int64(perMinute) {
					tooMany(c)
					return
				}
				c.Next()
				return
			}
			logger.WithError(err).Warn("Rate limit counter unavailable, using local limiter")
		}

		if !local.allow(clientIP) {
			tooMany(c)
			return
		}
		c.Next()
	}
}

func tooMany(c *gin.Context) {
	c.Header("Retry-After", strconv.Itoa(int(rateWindow.Seconds())))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":       "Rate limit exceeded",
		"retry_after": int(rateWindow.Seconds()),
	})
}

type localLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newLocalLimiter(perMinute int) *localLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &localLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(rateWindow / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

func (l *localLimiter) allow(ip string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}
