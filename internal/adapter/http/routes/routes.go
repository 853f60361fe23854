package routes

import (
	"todoitems/internal/adapter/http/handler"
	. "todoitems/internal/adapter/http/helper"
	"todoitems/internal/core/telemetry"
	. "todoitems/pkg/config"
	. "todoitems/pkg/middlewares"

	"github.com/gin-gonic/gin"
)

const routeNotFound = "Route not found"

type HandlersConfig struct {
	TodoHandler   *handler.TodoHandler
	HealthHandler *handler.HealthHandler
}

func SetupRouter(handlers HandlersConfig, config *AppConfig, metrics *telemetry.AppMetrics, logger *LokiLogger, store RateLimitStore) (*gin.Engine, error) {
	router := gin.New()

	if err := router.SetTrustedProxies(config.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	router.Use(gin.Recovery())

	SetupGinMiddleware(router, config, metrics, logger, store)

	setupRoutes(router, handlers)

	return router, nil
}

// SetupRouterForTests mounts the routes without the middleware chain.
func SetupRouterForTests(handlers HandlersConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	setupRoutes(router, handlers)

	return router
}

func setupRoutes(router *gin.Engine, handlers HandlersConfig) {
	if handlers.HealthHandler != nil {
		router.GET("/health", handlers.HealthHandler.Health)
	}

	if handlers.TodoHandler != nil {
		items := router.Group("/items")
		{
			items.GET("", handlers.TodoHandler.ListTodos)
			items.POST("", handlers.TodoHandler.CreateTodo)
			items.GET("/:id", handlers.TodoHandler.GetTodo)
			items.PUT("/:id", handlers.TodoHandler.UpdateTodo)
			items.DELETE("/:id", handlers.TodoHandler.DeleteTodo)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		SendNotFoundError(c, routeNotFound)
	})
}
