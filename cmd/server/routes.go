package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hacker-tracker.backend/internal/config"
	"hacker-tracker.backend/internal/interfaces/http/handlers"
	"hacker-tracker.backend/internal/interfaces/http/middleware"
	"hacker-tracker.backend/pkg/metrics"
)

const (
	serviceName    = "hacker-tracker-backend"
	serviceVersion = "0.1.0"
)

type routeDeps struct {
	authHandler    *handlers.AuthHandler
	adminHandler   *handlers.AdminHandler
	authMiddleware gin.HandlerFunc
	debugEndpoints bool
}

func newRouter(cfg *config.Config, m *metrics.Metrics, limiter middleware.RateLimiter, d routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware(m))
	r.Use(middleware.CORSMiddleware(cfg.Server.FrontendURL))

	registerHealthRoute(r)
	registerMetricsRoute(r, m)

	r.Use(middleware.RateLimitMiddleware(limiter, m))
	registerAPIV1Routes(r, d)
	return r
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
			"version": serviceVersion,
		})
	})
}

func registerMetricsRoute(r *gin.Engine, m *metrics.Metrics) {
	if m == nil {
		return
	}
	r.GET("/metrics", gin.WrapH(m.Handler()))
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", d.authHandler.Register)
			auth.POST("/login", d.authHandler.Login)
			auth.POST("/confirm-email", d.authHandler.ConfirmEmail)
			auth.POST("/refresh", d.authHandler.RefreshToken)
			auth.POST("/logout", d.authHandler.Logout)
			auth.POST("/resend-confirmation", d.authMiddleware, d.authHandler.ResendConfirmation)
			auth.GET("/me", d.authMiddleware, d.authHandler.GetMe)

			if d.debugEndpoints {
				auth.GET("/test/confirmation-code/:userId", d.authHandler.GetTestConfirmationCode)
			}
		}

		admin := v1.Group("/admin")
		admin.Use(d.authMiddleware, middleware.RequireAdmin())
		{
			admin.GET("/jobs", d.adminHandler.ListJobs)
			admin.GET("/jobs/stats", d.adminHandler.GetJobStats)
			admin.GET("/jobs/:id", d.adminHandler.GetJob)
			admin.PUT("/users/:id/email-confirmed", d.adminHandler.SetEmailConfirmed)
		}
	}
}
