package history

import (
	"context"
	"sync"

	"github.com/nadungimhanalk/Gemini-Image/internal/models"
	"go.uber.org/zap"
)

type MemoryStore struct {
	mu      sync.RWMutex
	entries []models.HistoryEntry // oldest first
	limits  Limits
	logger  *zap.Logger
}

func NewMemoryStore(logger *zap.Logger, limits ...Limits) *MemoryStore {
	l := DefaultLimits
	if len(limits) > 0 {
		l = limits[0]
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{limits: l, logger: logger}
}

func (s *MemoryStore) Save(ctx context.Context, label string, img *models.Image) error {
	if img == nil || len(img.Data) == 0 {
		return models.ErrNoOutput
	}
	entry := newEntry(label, img)

	s.mu.Lock()
	defer s.mu.Unlock()

	sizes := make([]int64, len(s.entries))
	for i, e := range s.entries {
		sizes[i] = e.Size()
	}
	evict, err := planEviction(sizes, entry.Size(), s.limits)
	if err != nil {
		return err
	}
	if evict > 0 {
		s.logger.Info("Evicting history entries", zap.Int("count", evict))
		s.entries = append([]models.HistoryEntry(nil), s.entries[evict:]...)
	}
	s.entries = append(s.entries, entry)
	return nil
}

// List returns entries newest first, without image data.
func (s *MemoryStore) List(ctx context.Context) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.HistoryEntry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		out = append(out, summary(s.entries[i]))
	}
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ID == id {
			found := e
			return &found, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
	return nil
}
