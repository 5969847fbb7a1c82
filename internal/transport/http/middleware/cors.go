package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	corsAllowMethods = "GET, POST, DELETE, OPTIONS"
	corsAllowHeaders = "Authorization, Content-Type, Accept, Origin, X-Request-ID, X-Trace-ID"
	corsMaxAge       = "86400"
)

// CORS answers cross-origin requests for the configured origins. A single "*"
// entry admits every origin; otherwise the inbound Origin header must match
// one of the configured values exactly. Credentials are only allowed for
// explicitly listed origins, never for the wildcard.
func CORS(origins []string) gin.HandlerFunc {
	wildcard := false
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		if origin == "*" {
			wildcard = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		headers := c.Writer.Header()
		if wildcard {
			headers.Set("Access-Control-Allow-Origin", "*")
		} else if _, ok := allowed[origin]; ok {
			headers.Set("Access-Control-Allow-Origin", origin)
			headers.Set("Access-Control-Allow-Credentials", "true")
			headers.Add("Vary", "Origin")
		}

		// Preflight requests terminate here so browsers get a definite answer
		// instead of the route's own response.
		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			headers.Set("Access-Control-Allow-Methods", corsAllowMethods)
			headers.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			headers.Set("Access-Control-Max-Age", corsMaxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
