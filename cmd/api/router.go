package api

import (
	"net/http"

	"autosend-backend/internal/auth/delivery"
	authUsecase "autosend-backend/internal/auth/usecase"
	submissionDelivery "autosend-backend/internal/submission/delivery"
	"autosend-backend/pkg/metrics"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, tokenUsecase authUsecase.TokenUsecase, submissionHandler *submissionDelivery.SubmissionHandler, settingsHandler *SettingsHandler) {
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Submission routes (admin only)
		submissions := api.Group("/submissions")
		submissions.Use(delivery.AdminMiddleware(tokenUsecase))
		{
			submissions.POST("", submissionHandler.CreateSubmission)
			submissions.GET("", submissionHandler.ListSubmissions)
			submissions.GET("/:id", submissionHandler.GetSubmission)
			submissions.GET("/:id/history", submissionHandler.GetHistory)
			submissions.PUT("/:id/draft", submissionHandler.UpdateDraft)
			submissions.POST("/:id/approve", submissionHandler.Approve)
			submissions.POST("/:id/hold", submissionHandler.Hold)
			submissions.POST("/:id/cancel", submissionHandler.Cancel)
			submissions.POST("/:id/escalate", submissionHandler.Escalate)
		}

		// Auto-send routes (admin only)
		autosend := api.Group("/autosend")
		autosend.Use(delivery.AdminMiddleware(tokenUsecase))
		{
			autosend.POST("/process-now", submissionHandler.ProcessNow)
		}

		// Settings routes (admin only) - Runtime configuration
		settings := api.Group("/settings")
		settings.Use(delivery.AdminMiddleware(tokenUsecase))
		{
			settings.GET("/ollama", settingsHandler.GetOllamaSettings)
			settings.PUT("/ollama", settingsHandler.UpdateOllamaSettings)
			settings.POST("/ollama/test", settingsHandler.TestOllamaConnection)
		}
	}
}
