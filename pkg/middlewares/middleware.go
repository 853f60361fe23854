package middlewares

import (
	"strconv"
	"time"

	"todoitems/internal/adapter/http/middleware"
	"todoitems/internal/core/telemetry"
	. "todoitems/pkg/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const unmatchedRoute = "unmatched"

func MetricsMiddleware(metrics *telemetry.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		metrics.IncrementActiveConnections(c.Request.Context())
		defer metrics.DecrementActiveConnections(c.Request.Context())

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}

		metrics.RecordRequest(
			c.Request.Context(),
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}

// CORSMiddleware allows the configured origins. A single "*" allows any origin.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:        12 * time.Hour,
	}

	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}

	return cors.New(corsConfig)
}

// SetupGinMiddleware installs the shared middleware chain. A nil store falls
// back to the in-memory rate limit store.
func SetupGinMiddleware(router *gin.Engine, config *AppConfig, metrics *telemetry.AppMetrics, logger *LokiLogger, store RateLimitStore) {
	router.Use(NewHTTPSEnforcer(config.HTTP.EnforceHTTPS, logger.Zap()).HTTPSMiddleware())

	router.Use(otelgin.Middleware(config.ServiceName))

	router.Use(CORSMiddleware(config.HTTP.AllowedOrigins))

	router.Use(middleware.CurrentMiddleware())

	router.Use(LoggingMiddleware(logger))

	if metrics != nil {
		router.Use(MetricsMiddleware(metrics))
	}

	if config.RateLimit.Enabled {
		rateLimiter := NewRateLimiter(config.RateLimit, store, logger.Zap(), metrics)
		router.Use(rateLimiter.RateLimitMiddleware())
	}
}
