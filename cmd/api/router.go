package api

import (
	"net/http"

	"jobhunt-backend/internal/auth/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	authRequired := delivery.AuthMiddleware(h.sessions, h.apiKey)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Pub/Sub push endpoint, authenticated by its own OIDC token
		api.POST("/push/gmail", h.pushHandler.Receive)

		// Mailbox connection routes (protected)
		auth := api.Group("/auth")
		auth.Use(authRequired)
		{
			auth.POST("/google/connect", h.authHandler.ConnectGoogle)
			auth.DELETE("/google", h.authHandler.DisconnectGoogle)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(authRequired)
		{
			fcm.POST("/register", h.authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", h.authHandler.DeleteFCMToken)
		}

		// Sync routes (protected)
		api.POST("/sync/trigger", authRequired, h.syncHandler.TriggerSync)
		api.GET("/sync-status/:jobId", authRequired, h.syncHandler.GetSyncStatus)

		// Email snapshot (protected)
		api.GET("/emails", authRequired, h.emailHandler.GetEmails)
	}
}
