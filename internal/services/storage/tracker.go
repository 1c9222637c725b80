package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nadungimhanalk/Gemini-Image/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	batchKeyPrefix = "batch:"
	maxTxRetries   = 5
)

// RedisTracker stores each batch as one JSON document that expires after
// the configured cache duration.
type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisTracker(client *redis.Client, ttl time.Duration) *RedisTracker {
	return &RedisTracker{client: client, ttl: ttl, prefix: batchKeyPrefix}
}

// Tracker returns the Redis tracker backed by this service's client, or
// nil when Redis is disabled.
func (s *StorageService) Tracker() *RedisTracker {
	if s.redisClient == nil {
		return nil
	}
	return NewRedisTracker(s.redisClient, s.cacheDuration)
}

func (t *RedisTracker) key(id string) string {
	return t.prefix + id
}

func (t *RedisTracker) Create(ctx context.Context, b *models.Batch) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}
	if err := t.client.Set(ctx, t.key(b.ID), data, t.ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

func (t *RedisTracker) Get(ctx context.Context, id string) (*models.Batch, error) {
	data, err := t.client.Get(ctx, t.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("cache get error: %w", err)
	}

	var b models.Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch: %w", err)
	}
	return &b, nil
}

// UpdateJob replaces one job of a stored batch inside an optimistic
// transaction, keeping the remaining TTL.
func (t *RedisTracker) UpdateJob(ctx context.Context, batchID string, job models.Job) error {
	key := t.key(batchID)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return models.ErrNotFound
			}
			return fmt.Errorf("cache get error: %w", err)
		}

		var b models.Batch
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("failed to unmarshal batch: %w", err)
		}
		if err := replaceJob(&b, job); err != nil {
			return err
		}

		updated, err := json.Marshal(&b)
		if err != nil {
			return fmt.Errorf("failed to marshal batch: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, updated, redis.SetArgs{KeepTTL: true})
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := t.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("failed to update job %s: %w", job.ID, redis.TxFailedErr)
}

// MemoryTracker is the in-process tracker used when Redis is disabled.
type MemoryTracker struct {
	mu      sync.RWMutex
	batches map[string]*models.Batch
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{batches: make(map[string]*models.Batch)}
}

func (t *MemoryTracker) Create(ctx context.Context, b *models.Batch) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.batches[b.ID] = copyBatch(b)
	return nil
}

func (t *MemoryTracker) Get(ctx context.Context, id string) (*models.Batch, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.batches[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return copyBatch(b), nil
}

func (t *MemoryTracker) UpdateJob(ctx context.Context, batchID string, job models.Job) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.batches[batchID]
	if !ok {
		return models.ErrNotFound
	}
	return replaceJob(b, job)
}

// replaceJob stores job over its previous version. A finished job never
// changes again, and only a job that has not started can be cancelled.
func replaceJob(b *models.Batch, job models.Job) error {
	for i := range b.Jobs {
		if b.Jobs[i].ID != job.ID {
			continue
		}
		current := b.Jobs[i].Status
		if current.Terminal() {
			return fmt.Errorf("job %s is %s: %w", job.ID, current, models.ErrJobFinalized)
		}
		if job.Status == models.StatusCancelled && current != models.StatusPending {
			return fmt.Errorf("job %s is %s: %w", job.ID, current, models.ErrJobStarted)
		}
		b.Jobs[i] = job
		return nil
	}
	return fmt.Errorf("job %s in batch %s: %w", job.ID, b.ID, models.ErrNotFound)
}

func copyBatch(b *models.Batch) *models.Batch {
	c := *b
	c.Jobs = append([]models.Job(nil), b.Jobs...)
	return &c
}
