package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nadungimhanalk/Gemini-Image/internal/http/handlers"
	"github.com/nadungimhanalk/Gemini-Image/internal/http/middleware"
	"go.uber.org/zap"
)

const (
	jsonContent      = "application/json"
	multipartContent = "multipart/form-data"
)

type Router struct {
	imageHandler   *handlers.ImageHandler
	batchHandler   *handlers.BatchHandler
	historyHandler *handlers.HistoryHandler
	healthHandler  *handlers.HealthHandler
	logger         *zap.Logger
}

func NewRouter(
	imageHandler *handlers.ImageHandler,
	batchHandler *handlers.BatchHandler,
	historyHandler *handlers.HistoryHandler,
	healthHandler *handlers.HealthHandler,
	logger *zap.Logger,
) *Router {
	return &Router{
		imageHandler:   imageHandler,
		batchHandler:   batchHandler,
		historyHandler: historyHandler,
		healthHandler:  healthHandler,
		logger:         logger,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.ErrorHandler(r.logger))
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())

	jsonOnly := middleware.ValidateContentType(jsonContent)
	multipartOnly := middleware.ValidateContentType(multipartContent)

	// API version 1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", r.healthHandler.HealthCheck)

		images := v1.Group("/images")
		{
			images.POST("/generate", jsonOnly, r.imageHandler.Generate)
			images.POST("/edit", multipartOnly, r.imageHandler.Edit)
			images.POST("/variations", multipartOnly, r.imageHandler.Variations)
			images.POST("/process", multipartOnly, r.imageHandler.Process)
		}

		v1.POST("/videos/generate", jsonOnly, r.imageHandler.GenerateVideo)

		batches := v1.Group("/batches")
		{
			batches.POST("", jsonOnly, r.batchHandler.Create)
			batches.GET("/:id", r.batchHandler.Get)
			batches.POST("/:id/cancel", r.batchHandler.Cancel)
			batches.GET("/:id/export", r.batchHandler.Export)
			batches.POST("/:id/publish", r.batchHandler.Publish)
		}

		hist := v1.Group("/history")
		{
			hist.GET("", r.historyHandler.List)
			hist.GET("/:id", r.historyHandler.Get)
			hist.DELETE("", r.historyHandler.Clear)
		}
	}

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "OK",
			"message": "Gemini image studio is running",
		})
	})

	return router
}
