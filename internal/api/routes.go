package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"comptrend/server/config"
	"comptrend/server/internal/database"
	"comptrend/server/internal/queue"
)

func SetupRoutes(router *gin.Engine, db *database.Database, queue *queue.SaleQueue, cfg *config.Config, logger *logrus.Logger) {
	handler := NewHandler(db, queue, cfg, logger)

	api := router.Group("/api")
	{
		api.GET("/health", handler.Health)
		api.POST("/uploads", handler.UploadFile)
		api.GET("/uploads", handler.ListUploads)
		api.GET("/uploads/:id", handler.GetUpload)
		api.POST("/uploads/:id/time-adjustments", handler.CreateTimeAdjustment)
		api.GET("/time-adjustments/:id", handler.GetTimeAdjustment)
	}
}
