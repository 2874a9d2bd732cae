package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// NoCache marks API responses as uncacheable. Contract bodies, grants and
// tokens must never be served from an intermediary cache.
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
		}
		c.Next()
	}
}
