package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/metrics"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/services"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/utils"
)

type HandlerManager struct {
	sessionHandler          *SessionHandler
	topicPerformanceHandler *TopicPerformanceHandler
	authMiddleware          *CasdoorAuthMiddleware
	serviceManager          services.ServiceManager
	logger                  utils.Logger
	exposeMetrics           bool
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	authMiddleware *CasdoorAuthMiddleware,
	exposeMetrics bool,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler:          NewSessionHandler(serviceManager.Session(), serviceManager.Export(), logger),
		topicPerformanceHandler: NewTopicPerformanceHandler(serviceManager.TopicPerformance(), logger),
		authMiddleware:          authMiddleware,
		serviceManager:          serviceManager,
		logger:                  logger,
		exposeMetrics:           exposeMetrics,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.StartSession)
			sessions.GET("", hm.sessionHandler.ListSessions)
			sessions.GET("/active", hm.sessionHandler.GetActiveSession)
			sessions.GET("/stats", hm.sessionHandler.GetSessionStats)
			sessions.POST("/abandon", hm.sessionHandler.AbandonSession)
			sessions.POST("/cleanup", hm.sessionHandler.CleanupStaleSessions)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.POST("/:id/answer", hm.sessionHandler.SubmitAnswer)
			sessions.GET("/:id/export", hm.sessionHandler.ExportSession)
		}

		topics := v1.Group("/topics")
		{
			topics.GET("/performance", hm.topicPerformanceHandler.ListMyPerformance)
			topics.GET("/:topic_id/performance", hm.topicPerformanceHandler.GetTopicPerformance)

			// Teachers and Admins only
			topics.POST("/:topic_id/performance/reset",
				hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher),
				hm.topicPerformanceHandler.ResetTopicPerformance)
		}

		students := v1.Group("/students")
		students.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher))
		{
			students.GET("/:student_id/topics/performance", hm.topicPerformanceHandler.ListStudentPerformance)
		}
	}

	router.GET("/health", hm.health)
	if hm.exposeMetrics {
		router.GET("/metrics", metrics.Handler())
	}
}

func (hm *HandlerManager) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		hm.logger.Warn("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "adaptive-assessment",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "adaptive-assessment",
	})
}
