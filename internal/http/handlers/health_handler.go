package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nadungimhanalk/Gemini-Image/internal/models"
)

type StorageHealth interface {
	HealthCheck(ctx context.Context) map[string]string
}

type QueueHealth interface {
	HealthCheck() string
	GetQueueStats() (*models.QueueStats, error)
}

type HealthHandler struct {
	storage    StorageHealth
	queue      QueueHealth
	configured func() bool
}

// NewHealthHandler reports storage and queue status. queue may be nil when
// batches run in-process; configured reports whether the Gemini key is set.
func NewHealthHandler(storage StorageHealth, queue QueueHealth, configured func() bool) *HealthHandler {
	return &HealthHandler{storage: storage, queue: queue, configured: configured}
}

// HealthCheck
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	services := map[string]string{}
	if h.storage != nil {
		for k, v := range h.storage.HealthCheck(c.Request.Context()) {
			services[k] = v
		}
	}

	var queueStats *models.QueueStats
	services["rabbitmq"] = "disabled"
	if h.queue != nil {
		services["rabbitmq"] = h.queue.HealthCheck()
		if services["rabbitmq"] == "healthy" {
			stats, err := h.queue.GetQueueStats()
			if err != nil {
				services["rabbitmq"] = "unhealthy: " + err.Error()
			} else {
				queueStats = stats
			}
		}
	}

	services["gemini"] = "not configured"
	if h.configured != nil && h.configured() {
		services["gemini"] = "configured"
	}

	overall := calculateOverallHealth(services)
	statusCode := http.StatusOK
	if overall == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, models.APIResponse{
		Success: overall == "healthy",
		Data: models.HealthCheck{
			Status:    overall,
			Timestamp: time.Now(),
			Services:  services,
			Queue:     queueStats,
		},
	})
}

func calculateOverallHealth(services map[string]string) string {
	for _, status := range services {
		switch status {
		case "healthy", "configured", "disabled", "not configured":
		default:
			return "unhealthy"
		}
	}
	return "healthy"
}
