package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/klarifai/queen-rag/internal/metrics"
)

// Router wires all routes and middleware into a gin engine.
func (ct *Controller) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(metrics.GinMiddleware())

	router.GET("/", ct.Root)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		chat := api.Group("/chat")
		{
			chat.POST("/message", ct.ChatMessage)
			chat.POST("/stream", ct.ChatStream)
			chat.POST("/search", ct.Search)
		}

		docs := api.Group("/documents")
		{
			docs.POST("/upload", ct.UploadDocument)
			docs.POST("/bulk-upload", ct.BulkUploadDocuments)
			docs.GET("/list", ct.ListDocuments)
			docs.DELETE("/delete", ct.DeleteDocument)
			docs.GET("/download/:filename", ct.DownloadDocument)
			docs.GET("/stats", ct.DocumentStats)
		}

		usageGroup := api.Group("/usage")
		{
			usageGroup.GET("/credits", ct.UsageCredits)
			usageGroup.POST("/reset", ct.UsageReset)
		}

		api.GET("/health", ct.HealthCheck)
	}

	return router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
