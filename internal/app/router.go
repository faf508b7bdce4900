package app

import (
	"edutheo_backend/internal/config"
	"edutheo_backend/internal/middleware"
	"edutheo_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.Health)

	// Public routes
	auth := router.Group("/api/auth")
	{
		auth.POST("/register", c.auth.Register)
		auth.POST("/login", c.auth.Login)
	}
	router.GET("/api/analytics/leaderboard", c.analytics.GetLeaderboard)

	// Authorized API
	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		api.GET("/auth/me", c.auth.Me)

		questions := api.Group("/questions")
		{
			questions.GET("", c.question.Filter)
			questions.GET("/random", c.question.Random)
			questions.GET("/chapters", c.question.Chapters)
			questions.GET("/tags", c.question.Tags)
			questions.GET("/topics", c.question.Topics)
			questions.GET("/count", c.question.Count)
			questions.GET("/review/wrong", c.question.WrongQuestions)
			questions.GET("/review/attempted", c.question.AttemptedQuestions)
			questions.POST("/check-answer", c.question.CheckAnswer)
			questions.POST("", c.question.Create)
			questions.POST("/import", c.question.Import)
			questions.POST("/marks", c.question.Mark)
			questions.GET("/marks", c.question.ListMarks)
			questions.DELETE("/marks/:markId", c.question.DeleteMark)
			questions.GET("/:questionId", c.question.GetByID)
		}

		analytics := api.Group("/analytics")
		{
			analytics.GET("/stats", c.analytics.GetStats)
			analytics.GET("/chapters", c.analytics.GetChapterProgress)
			analytics.GET("/realtime", c.analytics.GetRealTimeStats)
			analytics.GET("/trends", c.analytics.GetTrends)
			analytics.GET("/insights", c.analytics.GetInsights)
			analytics.GET("/recent", c.analytics.GetRecentActivity)
			analytics.GET("/snapshot", c.analytics.GetSnapshot)
			analytics.DELETE("/reset", c.analytics.Reset)
		}

		ai := api.Group("/ai")
		{
			ai.GET("/quota", c.chat.Quota)
		}
	}

	// WebSocket endpoints authenticate through the same middleware; the
	// token rides in the query string.
	ws := router.Group("/ws")
	ws.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		ws.GET("/events", c.chat.Events)
		ws.GET("/ai/chat", c.chat.Chat)
	}
}
