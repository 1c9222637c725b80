package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nadungimhanalk/Gemini-Image/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeTracker struct {
	mu      sync.Mutex
	batches map[string]*models.Batch
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{batches: map[string]*models.Batch{}}
}

func (f *fakeTracker) Create(ctx context.Context, b *models.Batch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches[b.ID] = cloneBatch(b)
	return nil
}

func (f *fakeTracker) UpdateJob(ctx context.Context, batchID string, job models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.batches[batchID]
	if !ok {
		return models.ErrNotFound
	}
	for i := range b.Jobs {
		if b.Jobs[i].ID != job.ID {
			continue
		}
		if b.Jobs[i].Status.Terminal() {
			return models.ErrJobFinalized
		}
		if job.Status == models.StatusCancelled && b.Jobs[i].Status != models.StatusPending {
			return models.ErrJobStarted
		}
		b.Jobs[i] = job
		return nil
	}
	return models.ErrNotFound
}

func (f *fakeTracker) Get(ctx context.Context, id string) (*models.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.batches[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneBatch(b), nil
}

type fakePublisher struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (p *fakePublisher) PublishBatch(ctx context.Context, batchID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, batchID)
	return p.err
}

func newTestManager(t *testing.T, gen Generator, opts Options) (*Manager, *fakeTracker) {
	t.Helper()
	tracker := newFakeTracker()
	m := NewManager(newTestRunner(t, gen, nil, opts), tracker, nil, zaptest.NewLogger(t), ManagerOptions{MaxSize: 3})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})
	return m, tracker
}

func waitFinished(t *testing.T, m *Manager, id string) *models.Batch {
	t.Helper()
	var b *models.Batch
	require.Eventually(t, func() bool {
		var err error
		b, err = m.Get(context.Background(), id)
		return err == nil && b.Finished()
	}, 5*time.Second, 10*time.Millisecond)
	return b
}

func TestManagerSubmitValidation(t *testing.T) {
	gen := &fakeGenerator{}
	m, tracker := newTestManager(t, gen, Options{})

	_, err := m.Submit(context.Background(), models.BatchRequest{Prompts: []string{"a", "b", "c", "d"}})
	assert.ErrorIs(t, err, models.ErrBatchTooLarge)

	_, err = m.Submit(context.Background(), models.BatchRequest{Prompts: []string{" ", ""}})
	assert.ErrorIs(t, err, models.ErrNoValidInput)

	assert.Empty(t, tracker.batches)
	assert.Empty(t, gen.Calls())
}

func TestManagerRunsLocally(t *testing.T) {
	gen := &fakeGenerator{failures: map[string]error{"b": errors.New("boom")}}
	m, _ := newTestManager(t, gen, Options{})

	b, err := m.Submit(context.Background(), models.BatchRequest{Prompts: []string{"a", "b", "c"}})
	require.NoError(t, err)
	assert.Len(t, b.Jobs, 3)

	final := waitFinished(t, m, b.ID)
	assert.Equal(t, []models.JobStatus{models.StatusDone, models.StatusFailed, models.StatusDone}, statuses(final.Jobs))

	archive, err := m.Export(context.Background(), b.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, archive)
}

func TestManagerAppliesPostProcessor(t *testing.T) {
	gen := &fakeGenerator{}
	tracker := newFakeTracker()
	var seen models.ProcessingOptions
	factory := func(opts models.ProcessingOptions) PostProcessor {
		seen = opts
		return postFunc(func(ctx context.Context, img *models.Image) (*models.Image, error) {
			return &models.Image{Data: []byte("post"), MIMEType: "image/png"}, nil
		})
	}
	m := NewManager(newTestRunner(t, gen, nil, Options{}), tracker, factory, zaptest.NewLogger(t))
	defer m.Shutdown(context.Background())

	b, err := m.Submit(context.Background(), models.BatchRequest{
		Prompts: []string{"a"},
		Options: models.ProcessingOptions{Normalize: true, MaxWidth: 512},
	})
	require.NoError(t, err)

	final := waitFinished(t, m, b.ID)
	assert.Equal(t, "post", string(final.Jobs[0].Result.Data))
	assert.Equal(t, 512, seen.MaxWidth)
}

func TestManagerQueuesWhenPublisherSet(t *testing.T) {
	gen := &fakeGenerator{}
	m, _ := newTestManager(t, gen, Options{})
	publisher := &fakePublisher{}
	m.SetPublisher(publisher)

	b, err := m.Submit(context.Background(), models.BatchRequest{Prompts: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, publisher.ids)
	assert.Empty(t, gen.Calls())

	require.NoError(t, m.Execute(context.Background(), b.ID))
	stored, err := m.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.True(t, stored.Finished())
	assert.Equal(t, []string{"a", "b"}, gen.Calls())
}

func TestManagerFallsBackWhenPublishFails(t *testing.T) {
	gen := &fakeGenerator{}
	m, _ := newTestManager(t, gen, Options{})
	m.SetPublisher(&fakePublisher{err: errors.New("broker down")})

	b, err := m.Submit(context.Background(), models.BatchRequest{Prompts: []string{"a"}})
	require.NoError(t, err)

	final := waitFinished(t, m, b.ID)
	assert.Equal(t, models.StatusDone, final.Jobs[0].Status)
}

func TestManagerCancelRunningBatch(t *testing.T) {
	gen := &fakeGenerator{}
	m, _ := newTestManager(t, gen, Options{Delay: time.Hour})

	b, err := m.Submit(context.Background(), models.BatchRequest{Prompts: []string{"a", "b", "c"}})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		stored, err := m.Get(context.Background(), b.ID)
		return err == nil && stored.Jobs[0].Status == models.StatusDone
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Cancel(context.Background(), b.ID))

	final := waitFinished(t, m, b.ID)
	assert.Equal(t, []models.JobStatus{models.StatusDone, models.StatusCancelled, models.StatusCancelled}, statuses(final.Jobs))
	assert.Equal(t, []string{"a"}, gen.Calls())
}

func TestManagerCancelQueuedBatch(t *testing.T) {
	gen := &fakeGenerator{}
	m, _ := newTestManager(t, gen, Options{})
	m.SetPublisher(&fakePublisher{})

	b, err := m.Submit(context.Background(), models.BatchRequest{Prompts: []string{"a", "b"}})
	require.NoError(t, err)
	require.NoError(t, m.Cancel(context.Background(), b.ID))

	require.NoError(t, m.Execute(context.Background(), b.ID))
	stored, err := m.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.JobStatus{models.StatusCancelled, models.StatusCancelled}, statuses(stored.Jobs))
	assert.Empty(t, gen.Calls())
}

func TestManagerUnknownBatch(t *testing.T) {
	m, _ := newTestManager(t, &fakeGenerator{}, Options{})

	assert.ErrorIs(t, m.Cancel(context.Background(), "missing"), models.ErrNotFound)
	assert.ErrorIs(t, m.Execute(context.Background(), "missing"), models.ErrNotFound)
	_, err := m.Export(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestManagerCancelReachesOtherInstance(t *testing.T) {
	tracker := newFakeTracker()
	opts := ManagerOptions{MaxSize: 3, CancelPollInterval: 10 * time.Millisecond}

	api := NewManager(newTestRunner(t, &fakeGenerator{}, nil, Options{}), tracker, nil, zaptest.NewLogger(t), opts)
	api.SetPublisher(&fakePublisher{})
	defer api.Shutdown(context.Background())

	gen := &fakeGenerator{}
	worker := NewManager(newTestRunner(t, gen, nil, Options{Delay: time.Hour}), tracker, nil, zaptest.NewLogger(t), opts)
	defer worker.Shutdown(context.Background())

	b, err := api.Submit(context.Background(), models.BatchRequest{Prompts: []string{"a", "b", "c"}})
	require.NoError(t, err)

	executed := make(chan error, 1)
	go func() {
		executed <- worker.Execute(context.Background(), b.ID)
	}()

	require.Eventually(t, func() bool {
		stored, err := tracker.Get(context.Background(), b.ID)
		return err == nil && stored.Jobs[0].Status == models.StatusDone
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, api.Cancel(context.Background(), b.ID))

	select {
	case err := <-executed:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker kept running a cancelled batch")
	}

	stored, err := tracker.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.JobStatus{models.StatusDone, models.StatusCancelled, models.StatusCancelled}, statuses(stored.Jobs))
	assert.Equal(t, []string{"a"}, gen.Calls())
}

func TestManagerStopsWhenTrackerRefusesJob(t *testing.T) {
	tracker := newFakeTracker()
	api := NewManager(newTestRunner(t, &fakeGenerator{}, nil, Options{}), tracker, nil, zaptest.NewLogger(t), ManagerOptions{MaxSize: 3})
	api.SetPublisher(&fakePublisher{})
	defer api.Shutdown(context.Background())

	var batchID string
	var calls []string
	gen := generatorFunc(func(ctx context.Context, prompt string) (*models.Image, error) {
		calls = append(calls, prompt)
		if prompt == "a" {
			require.NoError(t, api.Cancel(context.Background(), batchID))
		}
		return &models.Image{Data: []byte(prompt), MIMEType: "image/png"}, nil
	})
	worker := NewManager(newTestRunner(t, gen, nil, Options{}), tracker, nil, zaptest.NewLogger(t), ManagerOptions{MaxSize: 3})
	defer worker.Shutdown(context.Background())

	b, err := api.Submit(context.Background(), models.BatchRequest{Prompts: []string{"a", "b", "c"}})
	require.NoError(t, err)
	batchID = b.ID

	require.NoError(t, worker.Execute(context.Background(), b.ID))

	stored, err := tracker.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.JobStatus{models.StatusDone, models.StatusCancelled, models.StatusCancelled}, statuses(stored.Jobs))
	assert.Equal(t, []string{"a"}, calls)
}

func TestManagerExecuteLeavesJobsPendingOnShutdown(t *testing.T) {
	gen := &fakeGenerator{}
	m, tracker := newTestManager(t, gen, Options{})
	m.SetPublisher(&fakePublisher{})

	b, err := m.Submit(context.Background(), models.BatchRequest{Prompts: []string{"a", "b"}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = m.Execute(ctx, b.ID)
	assert.ErrorIs(t, err, models.ErrInterrupted)

	stored, err := tracker.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.JobStatus{models.StatusPending, models.StatusPending}, statuses(stored.Jobs))
	assert.Empty(t, gen.Calls())
}

func TestManagerResumesInterruptedBatch(t *testing.T) {
	ctx, shutdown := context.WithCancel(context.Background())
	defer shutdown()

	var calls []string
	gen := generatorFunc(func(_ context.Context, prompt string) (*models.Image, error) {
		calls = append(calls, prompt)
		if prompt == "a" {
			shutdown()
		}
		return &models.Image{Data: []byte(prompt), MIMEType: "image/png"}, nil
	})
	m, tracker := newTestManager(t, gen, Options{})
	m.SetPublisher(&fakePublisher{})

	b, err := m.Submit(context.Background(), models.BatchRequest{Prompts: []string{"a", "b"}})
	require.NoError(t, err)

	err = m.Execute(ctx, b.ID)
	require.ErrorIs(t, err, models.ErrInterrupted)

	stored, err := tracker.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.JobStatus{models.StatusDone, models.StatusPending}, statuses(stored.Jobs))

	require.NoError(t, m.Execute(context.Background(), b.ID))
	stored, err = tracker.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.JobStatus{models.StatusDone, models.StatusDone}, statuses(stored.Jobs))
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestManagerCancelExecutingBatch(t *testing.T) {
	gen := &fakeGenerator{block: map[string]bool{"a": true}}
	m, tracker := newTestManager(t, gen, Options{})
	m.SetPublisher(&fakePublisher{})

	b, err := m.Submit(context.Background(), models.BatchRequest{Prompts: []string{"a", "b"}})
	require.NoError(t, err)

	executed := make(chan error, 1)
	go func() {
		executed <- m.Execute(context.Background(), b.ID)
	}()

	require.Eventually(t, func() bool {
		return len(gen.Calls()) == 1
	}, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, m.Cancel(context.Background(), b.ID))
	require.NoError(t, <-executed)

	stored, err := tracker.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.JobStatus{models.StatusFailed, models.StatusCancelled}, statuses(stored.Jobs))
}
