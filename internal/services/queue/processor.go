package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nadungimhanalk/Gemini-Image/internal/models"
	"go.uber.org/zap"
)

func decodeMessage(body []byte) (BatchMessage, error) {
	var msg BatchMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("failed to unmarshal batch message: %w", err)
	}
	if msg.BatchID == "" {
		return msg, errors.New("batch message without batch_id")
	}
	return msg, nil
}

func (q *QueueService) processBatch(ctx context.Context, msg BatchMessage, workerID int) error {
	q.logger.Info("Processing batch",
		zap.String("batch_id", msg.BatchID),
		zap.Int("worker_id", workerID),
		zap.Duration("queued_for", time.Since(msg.SubmittedAt)))

	started := time.Now()
	if err := q.executor.Execute(ctx, msg.BatchID); err != nil {
		return err
	}

	q.logger.Info("Batch processed",
		zap.String("batch_id", msg.BatchID),
		zap.Duration("elapsed", time.Since(started)))
	return nil
}

// shouldRequeue decides the fate of a failed delivery. Work cut short by
// shutdown always goes back on the queue; any other failure is retried once
// unless the batch no longer exists.
func shouldRequeue(ctx context.Context, err error, redelivered bool) bool {
	if errors.Is(err, models.ErrInterrupted) || ctx.Err() != nil {
		return true
	}
	return !redelivered && !permanent(err)
}

// permanent reports errors that will not go away on redelivery.
func permanent(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
