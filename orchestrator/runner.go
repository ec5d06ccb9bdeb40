package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// JobConfig configures a periodic background job.
type JobConfig struct {
	Name            string
	Interval        time.Duration
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffOnErrors []error // Errors that stretch the interval instead of just logging
	RunImmediately  bool
}

// JobRunner owns the lifecycle of one background job.
type JobRunner struct {
	config JobConfig
	fn     func(ctx context.Context) error
	logger *slog.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJobRunner creates a job runner. The job starts on Start, not here.
func NewJobRunner(config JobConfig, fn func(ctx context.Context) error, logger *slog.Logger) *JobRunner {
	return &JobRunner{
		config: config,
		fn:     fn,
		logger: logger,
	}
}

// Start launches the job loop in a goroutine.
func (r *JobRunner) Start(ctx context.Context) {
	jobCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		r.run(jobCtx)
	}()
}

// Stop cancels the job and waits for the loop to exit.
func (r *JobRunner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}

	r.wg.Wait()
}

func (r *JobRunner) run(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "panic in job runner", "job", r.config.Name, "panic", rec)
		}
	}()

	if r.config.RunImmediately {
		if err := r.fn(ctx); err != nil {
			r.logger.ErrorContext(ctx, "initial job run failed", "job", r.config.Name, "error", err)
		}
	}

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	backoff := time.Duration(0)

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "job stopped", "job", r.config.Name)
			return
		case <-ticker.C:
			err := r.fn(ctx)
			if err == nil {
				if backoff > 0 {
					r.logger.InfoContext(ctx, "backoff cleared, resuming normal interval",
						"job", r.config.Name)
					backoff = 0
					ticker.Reset(r.config.Interval)
				}

				continue
			}

			if r.shouldBackoff(err) {
				backoff = r.nextBackoff(backoff)
				r.logger.WarnContext(ctx, "job backing off",
					"job", r.config.Name, "backoff", backoff, "error", err)
				ticker.Reset(backoff)

				continue
			}

			r.logger.ErrorContext(ctx, "job failed", "job", r.config.Name, "error", err)
		}
	}
}

func (r *JobRunner) shouldBackoff(err error) bool {
	for _, backoffErr := range r.config.BackoffOnErrors {
		if errors.Is(err, backoffErr) {
			return true
		}
	}

	return false
}

func (r *JobRunner) nextBackoff(current time.Duration) time.Duration {
	initial := r.config.InitialBackoff
	if initial == 0 {
		initial = 30 * time.Second
	}

	limit := r.config.MaxBackoff
	if limit == 0 {
		limit = 5 * time.Minute
	}

	if current == 0 {
		return initial
	}

	next := current * 2
	if next > limit {
		return limit
	}

	return next
}

// JobGroup starts and stops a set of job runners together.
type JobGroup struct {
	runners []*JobRunner
	ctx     context.Context
	logger  *slog.Logger
}

// NewJobGroup creates a job group bound to ctx.
func NewJobGroup(ctx context.Context, logger *slog.Logger) *JobGroup {
	return &JobGroup{ctx: ctx, logger: logger}
}

// Add registers a runner and starts it immediately.
func (g *JobGroup) Add(runner *JobRunner) {
	g.runners = append(g.runners, runner)
	g.logger.InfoContext(g.ctx, "starting job", "job", runner.config.Name)
	runner.Start(g.ctx)
}

// StopAll stops every runner and waits for all loops to exit.
func (g *JobGroup) StopAll() {
	for _, r := range g.runners {
		r.Stop()
	}
}
