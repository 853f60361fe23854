package pkg

import (
	"github.com/gin-gonic/gin"
)

// GetClientIP resolves the caller address. Forwarded headers are only
// honoured for proxies configured through gin's trusted proxy list.
func GetClientIP(c *gin.Context) string {
	ip := c.ClientIP()

	if ip == "" {
		return "unknown"
	}

	return ip
}
