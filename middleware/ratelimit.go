package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ContactRelay/pkg/ratelimit"
)

// ForwardedHeaders are read for the client address, in order, but only on
// requests whose peer is a trusted proxy.
var ForwardedHeaders = []string{"X-Forwarded-For", "X-Real-IP", "Client-Ip"}

// TrustProxies limits which peers may set the client address through
// ForwardedHeaders. An empty list trusts none, so the key is always the
// connection address.
func TrustProxies(r *gin.Engine, proxies []string) error {
	r.ForwardedByClientIP = true
	r.RemoteIPHeaders = ForwardedHeaders
	return r.SetTrustedProxies(proxies)
}

// ClientKey identifies the caller for rate limiting.
func ClientKey(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// RateLimit guards a route with a per-client sliding window.
func RateLimit(l *ratelimit.Limiter, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := l.Check(ClientKey(c))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(res.RetryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": message, "retryAfter": res.RetryAfter})
			return
		}
		c.Next()
	}
}
