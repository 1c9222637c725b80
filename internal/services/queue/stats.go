package queue

import (
	"errors"
	"fmt"

	"github.com/nadungimhanalk/Gemini-Image/internal/models"
)

// GetQueueStats reports how many batches wait in the queue and how many
// workers consume it.
func (q *QueueService) GetQueueStats() (*models.QueueStats, error) {
	if q == nil || q.channel == nil {
		return nil, errors.New("queue channel not available")
	}

	queueInfo, err := q.channel.QueueInspect(q.queueName)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect queue: %w", err)
	}

	return &models.QueueStats{
		Name:      queueInfo.Name,
		Messages:  queueInfo.Messages,
		Consumers: queueInfo.Consumers,
	}, nil
}

// HealthCheck checks if RabbitMQ is available
func (q *QueueService) HealthCheck() string {
	if q == nil {
		return "disabled"
	}
	if q.conn == nil || q.conn.IsClosed() {
		return "unhealthy: connection closed"
	}

	if q.channel == nil {
		return "unhealthy: channel not available"
	}

	return "healthy"
}
