package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nadungimhanalk/Gemini-Image/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultPrefix = "history"
	maxTxRetries  = 5
)

// RedisStore keeps entry ids in a list (oldest first) and each entry in
// its own hash. Saves run in an optimistic transaction on the list key.
type RedisStore struct {
	client *redis.Client
	prefix string
	limits Limits
	logger *zap.Logger
}

func NewRedisStore(client *redis.Client, logger *zap.Logger, limits ...Limits) *RedisStore {
	l := DefaultLimits
	if len(limits) > 0 {
		l = limits[0]
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, prefix: defaultPrefix, limits: l, logger: logger}
}

// WithPrefix namespaces every key; tests use it to stay isolated.
func (s *RedisStore) WithPrefix(prefix string) *RedisStore {
	s.prefix = prefix
	return s
}

func (s *RedisStore) listKey() string {
	return s.prefix + ":entries"
}

func (s *RedisStore) entryKey(id string) string {
	return s.prefix + ":entry:" + id
}

func (s *RedisStore) Save(ctx context.Context, label string, img *models.Image) error {
	if img == nil || len(img.Data) == 0 {
		return models.ErrNoOutput
	}
	entry := newEntry(label, img)

	txf := func(tx *redis.Tx) error {
		ids, err := tx.LRange(ctx, s.listKey(), 0, -1).Result()
		if err != nil {
			return fmt.Errorf("failed to read history index: %w", err)
		}

		sizes := make([]int64, len(ids))
		for i, id := range ids {
			size, err := tx.HGet(ctx, s.entryKey(id), "size").Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return fmt.Errorf("failed to read history entry size: %w", err)
			}
			sizes[i] = size
		}

		evict, err := planEviction(sizes, entry.Size(), s.limits)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, id := range ids[:evict] {
				pipe.Del(ctx, s.entryKey(id))
			}
			if evict > 0 {
				pipe.LTrim(ctx, s.listKey(), int64(evict), -1)
			}
			pipe.HSet(ctx, s.entryKey(entry.ID), map[string]interface{}{
				"label":      entry.Label,
				"mime_type":  entry.MIMEType,
				"data":       entry.Data,
				"size":       entry.Size(),
				"created_at": entry.CreatedAt.Format(time.RFC3339Nano),
			})
			pipe.RPush(ctx, s.listKey(), entry.ID)
			return nil
		})
		if err == nil && evict > 0 {
			s.logger.Info("Evicted history entries", zap.Int("count", evict))
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, s.listKey())
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, models.ErrQuotaExceeded) {
			return fmt.Errorf("failed to save history entry: %w", err)
		}
		return err
	}
	return fmt.Errorf("failed to save history entry: %w", redis.TxFailedErr)
}

// List returns entries newest first, without image data.
func (s *RedisStore) List(ctx context.Context) ([]models.HistoryEntry, error) {
	ids, err := s.client.LRange(ctx, s.listKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history index: %w", err)
	}

	out := make([]models.HistoryEntry, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		fields, err := s.client.HMGet(ctx, s.entryKey(ids[i]), "label", "mime_type", "created_at").Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read history entry: %w", err)
		}
		if fields[0] == nil {
			continue
		}
		out = append(out, models.HistoryEntry{
			ID:        ids[i],
			Label:     asString(fields[0]),
			MIMEType:  asString(fields[1]),
			CreatedAt: parseTime(asString(fields[2])),
		})
	}
	return out, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.HistoryEntry, error) {
	fields, err := s.client.HGetAll(ctx, s.entryKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history entry: %w", err)
	}
	if len(fields) == 0 {
		return nil, models.ErrNotFound
	}

	return &models.HistoryEntry{
		ID:        id,
		Label:     fields["label"],
		MIMEType:  fields["mime_type"],
		Data:      []byte(fields["data"]),
		CreatedAt: parseTime(fields["created_at"]),
	}, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	ids, err := s.client.LRange(ctx, s.listKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to read history index: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.entryKey(id))
	}
	keys = append(keys, s.listKey())

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func asString(v interface{}) string {
	if str, ok := v.(string); ok {
		return str
	}
	return ""
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
