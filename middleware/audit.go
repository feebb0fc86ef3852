package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// proxyHeaders in lookup order. X-Forwarded-For wins because payment traffic
// arrives through the frontend's reverse proxy.
var proxyHeaders = []string{"X-Forwarded-For", "X-Real-Ip", "CF-Connecting-IP", "X-Forwarded"}

// AuditMiddleware resolves the donor's client IP once per request and stores
// it on the context for audit log entries.
func AuditMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("client_ip", resolveClientIP(c))
		c.Next()
	}
}

func resolveClientIP(c *gin.Context) string {
	for _, header := range proxyHeaders {
		raw := c.GetHeader(header)
		if raw == "" {
			continue
		}
		// X-Forwarded-For may carry a chain, the first hop is the client.
		candidate := strings.TrimSpace(strings.SplitN(raw, ",", 2)[0])
		if net.ParseIP(candidate) != nil {
			return candidate
		}
	}

	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}

// GetIPFromContext returns the IP resolved by AuditMiddleware, falling back
// to direct resolution when the middleware is not installed (tests).
func GetIPFromContext(c *gin.Context) string {
	if ip, exists := c.Get("client_ip"); exists {
		if s, ok := ip.(string); ok {
			return s
		}
	}
	return resolveClientIP(c)
}
