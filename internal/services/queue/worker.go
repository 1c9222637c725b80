package queue

import (
	"context"
	"fmt"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// RunWorker consumes batch messages until ctx is done or the channel closes.
func (q *QueueService) RunWorker(ctx context.Context, workerID int) error {
	msgs, err := q.channel.Consume(
		q.queueName,                        // queue
		fmt.Sprintf("worker-%d", workerID), // consumer
		false,                              // auto-ack
		false,                              // exclusive
		false,                              // no-local
		false,                              // no-wait
		nil,                                // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	q.logger.Info("Worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			q.logger.Info("Worker stopping", zap.Int("worker_id", workerID))
			return nil
		case msg, ok := <-msgs:
			if !ok {
				q.logger.Warn("Message channel closed", zap.Int("worker_id", workerID))
				return nil
			}

			q.processMessage(ctx, msg, workerID)
		}
	}
}

func (q *QueueService) processMessage(ctx context.Context, msg amqp.Delivery, workerID int) {
	batchMsg, err := decodeMessage(msg.Body)
	if err != nil {
		q.logger.Error("Failed to decode batch message",
			zap.Error(err),
			zap.Int("worker_id", workerID))
		msg.Nack(false, false) // Don't requeue malformed messages
		return
	}

	if err := q.processBatch(ctx, batchMsg, workerID); err != nil {
		requeue := shouldRequeue(ctx, err, msg.Redelivered)
		q.logger.Error("Batch processing failed",
			zap.String("batch_id", batchMsg.BatchID),
			zap.Bool("requeue", requeue),
			zap.Error(err))
		if nackErr := msg.Nack(false, requeue); nackErr != nil {
			q.logger.Error("Failed to nack message",
				zap.String("batch_id", batchMsg.BatchID),
				zap.Error(nackErr))
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		q.logger.Error("Failed to ack message",
			zap.String("batch_id", batchMsg.BatchID),
			zap.Error(err))
	}
}
