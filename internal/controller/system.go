package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// tokenCreditLimit is the display budget the credits endpoint reports
// usage against.
const tokenCreditLimit = 100000

// Root handles GET /, a small service descriptor.
func (ct *Controller) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "Queen-RAG API",
		"version": "1.0.0",
		"status":  "running",
		"endpoints": gin.H{
			"chat":      "/api/chat",
			"documents": "/api/documents",
			"usage":     "/api/usage",
			"health":    "/api/health",
			"metrics":   "/metrics",
		},
	})
}

// HealthCheck handles GET /api/health.
func (ct *Controller) HealthCheck(c *gin.Context) {
	health := ct.chat.Health()

	status := "healthy"
	if !health.Initialized {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          status,
		"timestamp":       time.Now().Format(time.RFC3339),
		"initialized":     health.Initialized,
		"model":           health.Model,
		"embedding_model": ct.embeddingModel,
		"vector_store":    "chroma",
		"documents_count": ct.docs.Documents(),
	})
}

// UsageCredits handles GET /api/usage/credits: the running token totals
// framed against a display credit budget, plus the trailing week.
func (ct *Controller) UsageCredits(c *gin.Context) {
	stats := ct.usage.Stats()

	usagePercentage := float64(stats.TotalTokens) / tokenCreditLimit * 100
	if usagePercentage > 100 {
		usagePercentage = 100
	}

	now := time.Now()
	c.JSON(http.StatusOK, gin.H{
		"total_credits":    tokenCreditLimit,
		"used_credits":     stats.TotalTokens,
		"usage_percentage": usagePercentage,
		"total_cost_eur":   stats.TotalCostEUR,
		"daily_usage":      stats.DailyUsage,
		"current_period": gin.H{
			"start_date":     now.AddDate(0, 0, -7).Format(time.RFC3339),
			"end_date":       now.Format(time.RFC3339),
			"total_requests": stats.TotalRequests,
			"total_tokens":   stats.TotalTokens,
			"total_cost_eur": stats.TotalCostEUR,
		},
		"status":       "active",
		"last_updated": now.Format(time.RFC3339),
	})
}

// UsageReset handles POST /api/usage/reset.
func (ct *Controller) UsageReset(c *gin.Context) {
	ct.usage.Reset()
	c.JSON(http.StatusOK, gin.H{"status": "reset", "message": "Token usage data cleared"})
}
