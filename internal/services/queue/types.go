package queue

import (
	"context"
	"time"
)

// BatchMessage is the queue payload. The batch itself lives in the tracker.
type BatchMessage struct {
	BatchID     string    `json:"batch_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Executor runs a stored batch to completion.
type Executor interface {
	Execute(ctx context.Context, batchID string) error
}
