package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"edupresent/internal/ai"
	"edupresent/internal/config"
	"edupresent/internal/storage"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	db *gorm.DB,
	asynqClient *asynq.Client,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient *storage.Client,
	aiService *ai.Service,
	uploadCfg config.UploadConfig,
) {
	presentationHandler := NewPresentationHandler(db, storageClient, logger)
	exportHandler := NewExportHandler(db, asynqClient, storageClient)
	aiHandler := NewAIHandler(aiService, db, redisClient, logger)
	mediaHandler := NewMediaHandler(db, storageClient, logger, uploadCfg.ClamdAddr, uploadCfg.MaxBytes)
	wsHandler := NewWsHandler(redisClient, logger, nil)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		presGroup := v1.Group("/presentations")
		{
			presGroup.POST("", presentationHandler.CreatePresentation)
			presGroup.GET("", presentationHandler.ListPresentations)
			presGroup.GET("/:id", presentationHandler.GetPresentation)
			presGroup.PUT("/:id", presentationHandler.UpdatePresentation)
			presGroup.DELETE("/:id", presentationHandler.DeletePresentation)

			presGroup.GET("/:id/preview", exportHandler.PreviewPresentation)
			presGroup.POST("/:id/export/pdf", exportHandler.ExportPDF)
			presGroup.POST("/:id/export/pptx", exportHandler.ExportPPTX)
			presGroup.GET("/:id/download", exportHandler.DownloadExport)
			presGroup.GET("/:id/exports", exportHandler.ListExports)
		}

		aiGroup := v1.Group("/ai")
		{
			aiGroup.POST("/generate-presentation", aiHandler.GeneratePresentation)
			aiGroup.POST("/enhance-content", aiHandler.EnhanceContent)
			aiGroup.POST("/suggest-images", aiHandler.SuggestImages)
		}

		mediaGroup := v1.Group("/media")
		{
			mediaGroup.POST("/upload", mediaHandler.UploadMedia)
			mediaGroup.GET("", mediaHandler.ListMedia)
			mediaGroup.GET("/:id/view", mediaHandler.GetMediaURL)
			mediaGroup.DELETE("/:id", mediaHandler.DeleteMedia)
		}
	}
}
