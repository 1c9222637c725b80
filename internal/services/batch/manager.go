package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nadungimhanalk/Gemini-Image/internal/models"
	"go.uber.org/zap"
)

// Tracker records batches and per-job progress so clients can poll them.
type Tracker interface {
	Create(ctx context.Context, b *models.Batch) error
	UpdateJob(ctx context.Context, batchID string, job models.Job) error
	Get(ctx context.Context, id string) (*models.Batch, error)
}

// Publisher hands a stored batch to a queue worker.
type Publisher interface {
	PublishBatch(ctx context.Context, batchID string) error
}

// PostProcessorFactory builds the post-processing step for one batch.
type PostProcessorFactory func(opts models.ProcessingOptions) PostProcessor

// ManagerOptions bounds batch size. CancelPollInterval is how often a
// running batch re-reads the tracker for cancellations made by another
// instance; zero disables polling.
type ManagerOptions struct {
	MaxSize            int
	CancelPollInterval time.Duration
}

var DefaultManagerOptions = ManagerOptions{
	MaxSize:            50,
	CancelPollInterval: 2 * time.Second,
}

var errCancelRequested = errors.New("batch cancellation requested")

// Manager owns the lifecycle of submitted batches: it registers them with
// the tracker, queues or runs them, and cancels the ones running in this
// process.
type Manager struct {
	runner    *Runner
	tracker   Tracker
	newPost   PostProcessorFactory
	publisher Publisher
	logger    *zap.Logger
	maxSize   int
	pollEvery time.Duration

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running map[string]context.CancelCauseFunc
}

func NewManager(runner *Runner, tracker Tracker, newPost PostProcessorFactory, logger *zap.Logger, opts ...ManagerOptions) *Manager {
	options := DefaultManagerOptions
	if len(opts) > 0 {
		options = opts[0]
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Manager{
		runner:    runner,
		tracker:   tracker,
		newPost:   newPost,
		logger:    logger,
		maxSize:   options.MaxSize,
		pollEvery: options.CancelPollInterval,
		baseCtx:   ctx,
		stop:      stop,
		running:   make(map[string]context.CancelCauseFunc),
	}
}

// SetPublisher routes new batches through the queue instead of running them
// locally. A nil publisher restores local execution.
func (m *Manager) SetPublisher(p Publisher) {
	m.mu.Lock()
	m.publisher = p
	m.mu.Unlock()
}

// Submit validates the prompts, stores a new batch and starts it. The batch
// is returned before any job runs.
func (m *Manager) Submit(ctx context.Context, req models.BatchRequest) (*models.Batch, error) {
	if m.maxSize > 0 && len(req.Prompts) > m.maxSize {
		return nil, fmt.Errorf("%w: at most %d allowed", models.ErrBatchTooLarge, m.maxSize)
	}

	jobs, err := NewJobs(req.Prompts)
	if err != nil {
		return nil, err
	}

	b := &models.Batch{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Options:   req.Options,
		Jobs:      jobs,
	}
	if err := m.tracker.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to store batch: %w", err)
	}

	m.mu.Lock()
	publisher := m.publisher
	m.mu.Unlock()

	if publisher != nil {
		err := publisher.PublishBatch(ctx, b.ID)
		if err == nil {
			m.logger.Info("Batch queued", zap.String("batch_id", b.ID), zap.Int("jobs", len(jobs)))
			return b, nil
		}
		m.logger.Warn("Failed to queue batch, running locally",
			zap.String("batch_id", b.ID),
			zap.Error(err))
	}

	m.startLocal(cloneBatch(b))
	return b, nil
}

// Execute runs a stored batch to completion. Queue workers call it for each
// delivered batch id. When ctx ends before every job has started, the jobs
// not yet started stay pending and the error wraps models.ErrInterrupted so
// the batch can be delivered again.
func (m *Manager) Execute(ctx context.Context, batchID string) error {
	b, err := m.tracker.Get(ctx, batchID)
	if err != nil {
		return fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}
	return m.run(ctx, b, true)
}

func (m *Manager) Get(ctx context.Context, id string) (*models.Batch, error) {
	return m.tracker.Get(ctx, id)
}

// Export zips every successful job of the batch.
func (m *Manager) Export(ctx context.Context, id string) ([]byte, error) {
	b, err := m.tracker.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return ExportSuccessful(b.Jobs)
}

// Cancel stops a batch running in this process. A batch that is stored but
// not running here has its pending jobs marked cancelled; the instance
// running it, if any, notices and stops, and a worker picking it up later
// skips them.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	m.mu.Lock()
	cancel, ok := m.running[id]
	m.mu.Unlock()
	if ok {
		cancel(errCancelRequested)
		m.logger.Info("Batch cancellation requested", zap.String("batch_id", id))
		return nil
	}

	b, err := m.tracker.Get(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, j := range b.Jobs {
		if j.Status != models.StatusPending {
			continue
		}
		j.Status = models.StatusCancelled
		j.FinishedAt = &now
		err := m.tracker.UpdateJob(ctx, id, j)
		switch {
		case err == nil:
		case errors.Is(err, models.ErrJobStarted), errors.Is(err, models.ErrJobFinalized):
			// Picked up by a worker since the read.
		default:
			return fmt.Errorf("failed to cancel job %s: %w", j.ID, err)
		}
	}
	m.logger.Info("Batch cancelled in tracker", zap.String("batch_id", id))
	return nil
}

// Shutdown cancels every local batch and waits for them to stop, or for ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stop()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) startLocal(b *models.Batch) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		_ = m.run(m.baseCtx, b, false)
	}()
}

// run executes b until it finishes, is cancelled, or parent ends. With
// resumable set, jobs stopped by parent ending are left pending in the
// tracker and models.ErrInterrupted is returned.
func (m *Manager) run(parent context.Context, b *models.Batch, resumable bool) error {
	ctx, cancel := context.WithCancelCause(parent)

	m.mu.Lock()
	m.running[b.ID] = cancel
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.running, b.ID)
		m.mu.Unlock()
	}()

	pending := pendingIDs(b.Jobs)
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		m.watchCancellation(ctx, cancel, b.ID, pending)
	}()
	defer func() {
		cancel(nil)
		<-watchDone
	}()

	var post PostProcessor
	if m.newPost != nil {
		post = m.newPost(b.Options)
	}

	interrupted := false
	m.runner.Run(ctx, b.Jobs, post, func(job models.Job) {
		if resumable && job.Status == models.StatusCancelled && shuttingDown(parent, ctx) {
			interrupted = true
			return
		}
		m.record(ctx, cancel, b.ID, job)
	})

	if interrupted {
		m.logger.Info("Batch interrupted, leaving remaining jobs pending", zap.String("batch_id", b.ID))
		return fmt.Errorf("batch %s: %w", b.ID, models.ErrInterrupted)
	}
	return nil
}

// record stores a job transition. A refusal because the job is already
// finished means the batch was cancelled elsewhere, so the run stops.
func (m *Manager) record(ctx context.Context, cancel context.CancelCauseFunc, batchID string, job models.Job) {
	err := m.tracker.UpdateJob(context.WithoutCancel(ctx), batchID, job)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrJobFinalized):
		if ctx.Err() == nil {
			m.logger.Info("Batch cancelled by another instance, stopping",
				zap.String("batch_id", batchID),
				zap.String("job_id", job.ID))
		}
		cancel(errCancelRequested)
	default:
		m.logger.Warn("Failed to record job progress",
			zap.String("batch_id", batchID),
			zap.String("job_id", job.ID),
			zap.Error(err))
	}
}

// watchCancellation polls the tracker and stops the run once a job that was
// pending when the run started shows up cancelled.
func (m *Manager) watchCancellation(ctx context.Context, cancel context.CancelCauseFunc, batchID string, pending map[string]bool) {
	if m.pollEvery <= 0 || len(pending) == 0 {
		return
	}
	ticker := time.NewTicker(m.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		b, err := m.tracker.Get(ctx, batchID)
		if err != nil {
			if ctx.Err() == nil {
				m.logger.Debug("Cancellation check failed", zap.String("batch_id", batchID), zap.Error(err))
			}
			continue
		}
		for _, j := range b.Jobs {
			if pending[j.ID] && j.Status == models.StatusCancelled {
				m.logger.Info("Batch cancelled by another instance, stopping", zap.String("batch_id", batchID))
				cancel(errCancelRequested)
				return
			}
		}
	}
}

// shuttingDown reports whether run stopped because parent ended rather than
// because someone cancelled the batch.
func shuttingDown(parent, run context.Context) bool {
	return parent.Err() != nil && !errors.Is(context.Cause(run), errCancelRequested)
}

func pendingIDs(jobs []models.Job) map[string]bool {
	ids := make(map[string]bool, len(jobs))
	for _, j := range jobs {
		if j.Status == models.StatusPending {
			ids[j.ID] = true
		}
	}
	return ids
}

func cloneBatch(b *models.Batch) *models.Batch {
	c := *b
	c.Jobs = append([]models.Job(nil), b.Jobs...)
	return &c
}
