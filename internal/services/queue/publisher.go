package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// PublishBatch queues a stored batch for a worker.
func (q *QueueService) PublishBatch(ctx context.Context, batchID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(BatchMessage{BatchID: batchID, SubmittedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal batch message: %w", err)
	}

	err = q.channel.Publish(
		"",          // exchange
		q.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			MessageId:    batchID,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish batch: %w", err)
	}

	q.logger.Info("Batch published to queue", zap.String("batch_id", batchID))
	return nil
}
