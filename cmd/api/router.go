package api

import (
	"net/http"

	"calsync/internal/auth/delivery"
	authUsecase "calsync/internal/auth/usecase"
	"calsync/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(r *gin.Engine, authUsecase authUsecase.AuthUsecase, cfg *config.Config) {
	authHandler := delivery.NewAuthHandler(authUsecase, cfg.FrontOrigin)

	r.Use(delivery.CORSMiddleware(cfg.FrontOrigin))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Microsoft OAuth broker
	auth := r.Group("/auth")
	{
		auth.GET("", authHandler.Authorize)
		auth.GET("/callback", authHandler.Callback)
		auth.POST("/refresh", authHandler.Refresh)
	}
}
