package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"paywatch.backend/internal/interfaces/http/handlers"
	"paywatch.backend/internal/interfaces/http/middleware"
)

// setupRouter builds the gin engine with the engine's collaborator endpoints.
// Authentication is handled by an upstream gateway and is not wired here.
func setupRouter(
	intentHandler *handlers.IntentHandler,
	rollupHandler *handlers.RollupHandler,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/intents", intentHandler.CreateIntent)
		v1.GET("/intents/:id", intentHandler.GetStatus)
		v1.POST("/intents/:id/cancel", intentHandler.Cancel)
		v1.POST("/intents/:id/override", intentHandler.Override)

		v1.GET("/merchants/:id/rollups", rollupHandler.GetRollups)
	}

	return r
}
