package history

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/nadungimhanalk/Gemini-Image/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPlanEviction(t *testing.T) {
	tests := []struct {
		name     string
		sizes    []int64
		incoming int64
		limits   Limits
		want     int
		wantErr  error
	}{
		{name: "empty store", sizes: nil, incoming: 10, limits: Limits{MaxEntries: 2, MaxBytes: 100}, want: 0},
		{name: "fits without eviction", sizes: []int64{10, 10}, incoming: 10, limits: Limits{MaxEntries: 3, MaxBytes: 100}, want: 0},
		{name: "count limit evicts oldest", sizes: []int64{10, 10, 10}, incoming: 10, limits: Limits{MaxEntries: 3, MaxBytes: 100}, want: 1},
		{name: "byte limit evicts until fit", sizes: []int64{40, 30, 20}, incoming: 50, limits: Limits{MaxEntries: 10, MaxBytes: 100}, want: 2},
		{name: "byte limit evicts everything", sizes: []int64{60, 40}, incoming: 100, limits: Limits{MaxEntries: 10, MaxBytes: 100}, want: 2},
		{name: "larger than quota", sizes: []int64{10}, incoming: 101, limits: Limits{MaxEntries: 10, MaxBytes: 100}, wantErr: models.ErrQuotaExceeded},
		{name: "no limits", sizes: []int64{1 << 30}, incoming: 1 << 30, limits: Limits{}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := planEviction(tt.sizes, tt.incoming, tt.limits)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func image(n int) *models.Image {
	return &models.Image{Data: make([]byte, n), MIMEType: "image/png"}
}

// exerciseStore runs the behaviour shared by every Store implementation.
// limits must be {MaxEntries: 3, MaxBytes: 1000}.
func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("save and list newest first", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx))
		require.NoError(t, store.Save(ctx, "one", image(10)))
		require.NoError(t, store.Save(ctx, "two", image(10)))

		entries, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "two", entries[0].Label)
		assert.Equal(t, "one", entries[1].Label)
		assert.Nil(t, entries[0].Data)
		assert.Equal(t, "image/png", entries[0].MIMEType)
	})

	t.Run("get returns data", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx))
		require.NoError(t, store.Save(ctx, "one", &models.Image{Data: []byte("pixels"), MIMEType: "image/jpeg"}))

		entries, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)

		entry, err := store.Get(ctx, entries[0].ID)
		require.NoError(t, err)
		assert.Equal(t, []byte("pixels"), entry.Data)
		assert.Equal(t, "image/jpeg", entry.MIMEType)
		assert.False(t, entry.CreatedAt.IsZero())

		_, err = store.Get(ctx, "missing")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("count limit evicts oldest", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx))
		for i := 0; i < 5; i++ {
			require.NoError(t, store.Save(ctx, fmt.Sprintf("p%d", i), image(10)))
		}

		entries, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "p4", entries[0].Label)
		assert.Equal(t, "p2", entries[2].Label)
	})

	t.Run("byte limit evicts oldest", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx))
		require.NoError(t, store.Save(ctx, "a", image(400)))
		require.NoError(t, store.Save(ctx, "b", image(400)))
		require.NoError(t, store.Save(ctx, "c", image(400)))

		entries, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "c", entries[0].Label)
		assert.Equal(t, "b", entries[1].Label)
	})

	t.Run("oversized entry rejected", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx))
		require.NoError(t, store.Save(ctx, "keep", image(10)))

		err := store.Save(ctx, "huge", image(2000))
		assert.ErrorIs(t, err, models.ErrQuotaExceeded)

		entries, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "keep", entries[0].Label)
	})

	t.Run("empty image rejected", func(t *testing.T) {
		assert.ErrorIs(t, store.Save(ctx, "x", nil), models.ErrNoOutput)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "x", image(1)))
		require.NoError(t, store.Clear(ctx))

		entries, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(zap.NewNop(), Limits{MaxEntries: 3, MaxBytes: 1000}))
}

func TestMemoryStoreConcurrentSaves(t *testing.T) {
	store := NewMemoryStore(zap.NewNop(), Limits{MaxEntries: 5})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Save(ctx, fmt.Sprintf("p%d", i), image(1)))
		}(i)
	}
	wg.Wait()

	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}
