package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"tracking/internal/handler"
	"tracking/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TrackingHandler *handler.TrackingHandler
	RedisClient     *redis.Client
	NewRelicApp     *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.Idempotency(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		trips := v1.Group("/trips")
		{
			trips.GET("", deps.TrackingHandler.ListActive)
			trips.POST("/cleanup", deps.TrackingHandler.CleanupExpired)
			trips.POST("/:id/track", deps.TrackingHandler.StartTracking)
			trips.POST("/:id/location", deps.TrackingHandler.UpdateLocation)
			trips.GET("/:id", deps.TrackingHandler.GetStatus)
			trips.GET("/:id/history", deps.TrackingHandler.GetHistory)
			trips.GET("/:id/analytics", deps.TrackingHandler.GetAnalytics)
			trips.POST("/:id/stop", deps.TrackingHandler.StopTracking)
		}
	}

	return router
}
