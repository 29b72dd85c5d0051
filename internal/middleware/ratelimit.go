package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// RateLimit throttles requests per client IP with a token bucket. It guards
// the credential endpoints against password guessing.
func RateLimit(perSecond float64, burst int) gin.HandlerFunc {
	return RateLimitBy(perSecond, burst, (*gin.Context).ClientIP, func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
			Error:   "Too Many Requests",
			Details: "Too many attempts. Please wait a moment and try again.",
			Code:    "rate-limited",
		})
	})
}

// RateLimitBy keeps one token bucket per key(c). Requests over the limit get
// a Retry-After header and are handed to reject, which must abort.
func RateLimitBy(perSecond float64, burst int, key func(*gin.Context) string, reject gin.HandlerFunc) gin.HandlerFunc {
	limiters := expirable.NewLRU[string, *rate.Limiter](4096, nil, 10*time.Minute)
	return func(c *gin.Context) {
		k := key(c)
		limiter, ok := limiters.Get(k)
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
			limiters.Add(k, limiter)
		}
		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			reject(c)
			return
		}
		c.Next()
	}
}

// PrincipalOrIP keys on the verified bearer principal, falling back to the
// client IP for anonymous callers.
func PrincipalOrIP(c *gin.Context) string {
	if p, ok := PrincipalFrom(c); ok {
		return "uid:" + p.UID
	}
	return "ip:" + c.ClientIP()
}
