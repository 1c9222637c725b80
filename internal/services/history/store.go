package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nadungimhanalk/Gemini-Image/internal/models"
)

// Store keeps the most recent generated images. Save satisfies the batch
// runner's history sink.
type Store interface {
	Save(ctx context.Context, label string, img *models.Image) error
	List(ctx context.Context) ([]models.HistoryEntry, error)
	Get(ctx context.Context, id string) (*models.HistoryEntry, error)
	Clear(ctx context.Context) error
}

// Limits bound the store by entry count and total size. Zero disables a limit.
type Limits struct {
	MaxEntries int
	MaxBytes   int64
}

var DefaultLimits = Limits{
	MaxEntries: 20,
	MaxBytes:   5 * 1024 * 1024,
}

func newEntry(label string, img *models.Image) models.HistoryEntry {
	return models.HistoryEntry{
		ID:        uuid.New().String(),
		Label:     label,
		MIMEType:  img.MIMEType,
		Data:      img.Data,
		CreatedAt: time.Now().UTC(),
	}
}

// planEviction returns how many of the oldest entries must go so that an
// entry of incoming bytes fits. sizes is ordered oldest first. An entry
// larger than the whole byte quota is rejected without evicting anything.
func planEviction(sizes []int64, incoming int64, limits Limits) (int, error) {
	if limits.MaxBytes > 0 && incoming > limits.MaxBytes {
		return 0, models.ErrQuotaExceeded
	}

	var total int64
	for _, s := range sizes {
		total += s
	}

	evict := 0
	for evict < len(sizes) && !fits(len(sizes)-evict, total, incoming, limits) {
		total -= sizes[evict]
		evict++
	}

	if !fits(len(sizes)-evict, total, incoming, limits) {
		return 0, models.ErrQuotaExceeded
	}
	return evict, nil
}

func fits(count int, total, incoming int64, limits Limits) bool {
	if limits.MaxEntries > 0 && count+1 > limits.MaxEntries {
		return false
	}
	if limits.MaxBytes > 0 && total+incoming > limits.MaxBytes {
		return false
	}
	return true
}

// summary strips image bytes for listings.
func summary(e models.HistoryEntry) models.HistoryEntry {
	e.Data = nil
	return e
}
