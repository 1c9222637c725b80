package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nadungimhanalk/Gemini-Image/internal/models"
	"go.uber.org/zap"
)

type Generator interface {
	Generate(ctx context.Context, prompt string) (*models.Image, error)
}

type PostProcessor interface {
	Process(ctx context.Context, img *models.Image) (*models.Image, error)
}

// HistorySink receives every successful result. Failures are logged and
// never change the job outcome.
type HistorySink interface {
	Save(ctx context.Context, label string, img *models.Image) error
}

// ProgressFunc is called synchronously with a copy of the job after each
// status change.
type ProgressFunc func(job models.Job)

type Options struct {
	Delay      time.Duration
	JobTimeout time.Duration
}

var DefaultOptions = Options{
	Delay: 2 * time.Second,
}

// Runner executes batches strictly one job at a time, pausing Delay between
// jobs to stay under the upstream rate limit.
type Runner struct {
	generator  Generator
	history    HistorySink
	logger     *zap.Logger
	delay      time.Duration
	jobTimeout time.Duration
}

func NewRunner(generator Generator, history HistorySink, logger *zap.Logger, opts ...Options) *Runner {
	options := DefaultOptions
	if len(opts) > 0 {
		options = opts[0]
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		generator:  generator,
		history:    history,
		logger:     logger,
		delay:      options.Delay,
		jobTimeout: options.JobTimeout,
	}
}

// NewJobs trims the prompts, drops blank ones and returns one pending job per
// remaining prompt in input order.
func NewJobs(prompts []string) ([]models.Job, error) {
	now := time.Now().UTC()
	jobs := make([]models.Job, 0, len(prompts))
	for _, p := range prompts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		jobs = append(jobs, models.Job{
			ID:        uuid.New().String(),
			Index:     len(jobs),
			Prompt:    p,
			Status:    models.StatusPending,
			CreatedAt: now,
		})
	}

	if len(jobs) == 0 {
		return nil, models.ErrNoValidInput
	}
	return jobs, nil
}

// RunBatch creates the jobs for prompts and runs them. It fails only when no
// prompt is usable; individual job failures are reported on the jobs.
func (r *Runner) RunBatch(ctx context.Context, prompts []string, post PostProcessor, onProgress ProgressFunc) ([]models.Job, error) {
	jobs, err := NewJobs(prompts)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, jobs, post, onProgress), nil
}

// Run executes pending jobs in order. Once ctx is done, every job that has
// not started is marked cancelled without calling the generator.
func (r *Runner) Run(ctx context.Context, jobs []models.Job, post PostProcessor, onProgress ProgressFunc) []models.Job {
	started := time.Now()
	r.logger.Info("Batch started", zap.Int("jobs", len(jobs)))

	for i := range jobs {
		if jobs[i].Status != models.StatusPending {
			continue
		}
		if ctx.Err() != nil {
			r.cancelRemaining(jobs[i:], onProgress)
			break
		}

		r.runJob(ctx, &jobs[i], post, onProgress)

		if hasPending(jobs[i+1:]) {
			if err := r.wait(ctx); err != nil {
				r.cancelRemaining(jobs[i+1:], onProgress)
				break
			}
		}
	}

	counts := Summarize(jobs)
	r.logger.Info("Batch finished",
		zap.Int("done", counts[models.StatusDone]),
		zap.Int("failed", counts[models.StatusFailed]),
		zap.Int("cancelled", counts[models.StatusCancelled]),
		zap.Duration("elapsed", time.Since(started)))

	return jobs
}

func (r *Runner) runJob(ctx context.Context, job *models.Job, post PostProcessor, onProgress ProgressFunc) {
	startedAt := time.Now().UTC()
	job.Status = models.StatusGenerating
	job.StartedAt = &startedAt
	r.notify(onProgress, job)

	jobCtx := ctx
	cancel := func() {}
	if r.jobTimeout > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, r.jobTimeout)
	}
	img, err := r.execute(jobCtx, job.Prompt, post)
	cancel()

	finishedAt := time.Now().UTC()
	job.FinishedAt = &finishedAt

	if err != nil {
		if r.jobTimeout > 0 && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w: job exceeded %s", models.ErrTimeout, r.jobTimeout)
		}
		job.Status = models.StatusFailed
		job.Error = err.Error()
		r.logger.Warn("Job failed",
			zap.String("job_id", job.ID),
			zap.Int("index", job.Index),
			zap.Error(err))
		r.notify(onProgress, job)
		return
	}

	job.Status = models.StatusDone
	job.Result = img
	r.logger.Info("Job completed",
		zap.String("job_id", job.ID),
		zap.Int("index", job.Index),
		zap.Int("bytes", len(img.Data)))
	r.notify(onProgress, job)

	r.persist(ctx, job)
}

func (r *Runner) execute(ctx context.Context, prompt string, post PostProcessor) (*models.Image, error) {
	// The progress callback may have stopped the batch.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := r.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if img == nil || len(img.Data) == 0 {
		return nil, &models.GenerationError{Kind: models.FailureNoOutput, Message: "generator returned an empty image"}
	}

	if post == nil {
		return img, nil
	}
	processed, err := post.Process(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("post-processing failed: %w", err)
	}
	return processed, nil
}

func (r *Runner) persist(ctx context.Context, job *models.Job) {
	if r.history == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("History sink panicked", zap.Any("panic", rec), zap.String("job_id", job.ID))
		}
	}()

	if err := r.history.Save(context.WithoutCancel(ctx), job.Prompt, job.Result); err != nil {
		r.logger.Warn("Failed to save job result to history",
			zap.String("job_id", job.ID),
			zap.Error(err))
	}
}

func (r *Runner) cancelRemaining(jobs []models.Job, onProgress ProgressFunc) {
	now := time.Now().UTC()
	for i := range jobs {
		if jobs[i].Status != models.StatusPending {
			continue
		}
		jobs[i].Status = models.StatusCancelled
		jobs[i].FinishedAt = &now
		r.notify(onProgress, &jobs[i])
	}
}

func hasPending(jobs []models.Job) bool {
	for _, j := range jobs {
		if j.Status == models.StatusPending {
			return true
		}
	}
	return false
}

func (r *Runner) wait(ctx context.Context) error {
	if r.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(r.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Runner) notify(onProgress ProgressFunc, job *models.Job) {
	if onProgress == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Progress callback panicked", zap.Any("panic", rec), zap.String("job_id", job.ID))
		}
	}()
	onProgress(*job)
}

func Summarize(jobs []models.Job) map[models.JobStatus]int {
	counts := make(map[models.JobStatus]int, 5)
	for _, j := range jobs {
		counts[j.Status]++
	}
	return counts
}
