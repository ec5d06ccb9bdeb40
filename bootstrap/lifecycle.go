package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bias-tracker/config"
	"bias-tracker/domain"
	"bias-tracker/orchestrator"
	"bias-tracker/utils/logger"
)

const dlqReprocessBatch = 50

// Run is the main application entry point. It builds all dependencies,
// starts the server, consumer, and background jobs, then waits for a
// shutdown signal.
func Run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(cfg.Logging.Level)

	log.Info("starting bias-tracker service",
		"log_level", cfg.Logging.Level,
		"topics_path", cfg.Topics.Path,
		"consumer_enabled", cfg.Consumer.Enabled)

	deps, cleanup, err := BuildDependencies(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to build dependencies: %w", err)
	}
	defer cleanup()
	defer func() {
		if deps.Consumer != nil {
			deps.Consumer.Stop()
		}
	}()

	httpServer := NewHTTPServer(deps)
	StartHTTPServer(httpServer, cfg.Server.Port, log)

	if err := deps.Consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event consumer: %w", err)
	}

	jobCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()

	jobs := startJobs(jobCtx, deps)
	go deps.DLQ.StartCleanup(jobCtx)

	log.Info("bias-tracker service started")
	waitForShutdown(ctx, httpServer, deps, jobs)

	return nil
}

func startJobs(ctx context.Context, deps *Dependencies) *orchestrator.JobGroup {
	group := orchestrator.NewJobGroup(ctx, deps.Logger)

	group.Add(orchestrator.NewJobRunner(orchestrator.JobConfig{
		Name:     "ranking-refresh",
		Interval: deps.Config.Ranker.Interval,
	}, deps.Ranker.RunOnce, deps.Logger))

	group.Add(orchestrator.NewJobRunner(orchestrator.JobConfig{
		Name:            "dlq-reprocess",
		Interval:        deps.Config.Ranker.Interval,
		BackoffOnErrors: []error{domain.ErrOracleUnavailable},
	}, func(ctx context.Context) error {
		_, err := deps.Reprocess.Reprocess(ctx, dlqReprocessBatch)
		return err
	}, deps.Logger))

	return group
}

func waitForShutdown(ctx context.Context, httpServer interface{ Shutdown(context.Context) error }, deps *Dependencies, jobs *orchestrator.JobGroup) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case <-ctx.Done():
	}

	deps.Logger.Info("shutting down bias-tracker service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), deps.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		deps.Logger.Error("error shutting down HTTP server", "error", err)
	}

	jobs.StopAll()

	deps.Logger.Info("bias-tracker service stopped")
}
