// Package task runs the background worker pool that drains the task
// queue, plus the recovery paths that keep the database and queue
// consistent across restarts and crashes.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/cleohq/cleo-api/internal/domain"
	"github.com/cleohq/cleo-api/internal/queue"
	"github.com/cleohq/cleo-api/internal/store"
)

// Service is the slice of the AI service the runner needs: processing
// one delivery, and requeueing persisted tasks during recovery.
type Service interface {
	ProcessMessage(ctx context.Context, msg queue.Message) error
	Enqueue(ctx context.Context, task *domain.Task) error
}

// RunnerConfig holds configuration for the task runner.
type RunnerConfig struct {
	// WorkerCount determines how many concurrent consumers drain the queue.
	WorkerCount int

	// StuckTaskAge defines how long a task can sit in processing state
	// before the sweep considers it stuck and resets it.
	StuckTaskAge time.Duration

	// SweepInterval defines how often to check for stuck tasks.
	SweepInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:   2,
		StuckTaskAge:  30 * time.Minute,
		SweepInterval: 5 * time.Minute,
	}
}

// Runner manages background task processing: a worker pool consuming the
// queue, startup recovery of unfinished tasks, and a scheduled sweep
// that rescues tasks stuck in processing after a crash.
type Runner struct {
	taskStore  store.TaskStore
	taskQueue  queue.Queue
	service    Service
	config     RunnerConfig
	logger     *slog.Logger
	scheduler  gocron.Scheduler
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewRunner creates a new Runner.
func NewRunner(
	taskStore store.TaskStore,
	taskQueue queue.Queue,
	service Service,
	config RunnerConfig,
	logger *slog.Logger,
) (*Runner, error) {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 2
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = 5 * time.Minute
	}
	if config.StuckTaskAge <= 0 {
		config.StuckTaskAge = 30 * time.Minute
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		taskStore:  taskStore,
		taskQueue:  taskQueue,
		service:    service,
		config:     config,
		logger:     logger.With(slog.String("component", "task_runner")),
		scheduler:  scheduler,
		ctx:        ctx,
		cancelFunc: cancel,
	}, nil
}

// Start recovers unfinished tasks, launches the worker pool, and
// schedules the stuck-task sweep.
func (r *Runner) Start() error {
	if err := r.Recover(r.ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	_, err := r.scheduler.NewJob(
		gocron.DurationJob(r.config.SweepInterval),
		gocron.NewTask(func() {
			if err := r.SweepStuckTasks(r.ctx); err != nil {
				r.logger.Error("stuck task sweep failed", "error", err)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule stuck task sweep: %w", err)
	}
	r.scheduler.Start()

	r.logger.Info("task runner started",
		"worker_count", r.config.WorkerCount,
		"sweep_interval", r.config.SweepInterval,
		"stuck_task_age", r.config.StuckTaskAge)
	return nil
}

// Stop gracefully shuts down the runner. In-flight handlers finish; the
// tasks they leave behind are picked up by recovery on the next start.
func (r *Runner) Stop() {
	r.cancelFunc()
	if err := r.scheduler.Shutdown(); err != nil {
		r.logger.Error("failed to shut down scheduler", "error", err)
	}
	r.wg.Wait()
	r.logger.Info("task runner stopped")
}

// worker consumes the queue until the runner context is cancelled.
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	log := r.logger.With("worker_id", id)
	log.Debug("worker started")

	err := r.taskQueue.Consume(r.ctx, r.service.ProcessMessage)
	if err != nil && r.ctx.Err() == nil {
		log.Error("worker consume loop exited", "error", err)
		return
	}
	log.Debug("worker stopped")
}

// Recover reconciles the database with the queue after a restart:
// pending tasks are requeued, and tasks left in processing by a crashed
// worker are reset to pending and requeued.
func (r *Runner) Recover(ctx context.Context) error {
	pending, err := r.taskStore.GetPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	processing, err := r.taskStore.GetProcessingOlderThan(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, task := range pending {
		if err := r.service.Enqueue(ctx, task); err != nil {
			r.logger.Error("failed to requeue pending task",
				"task_id", task.ID,
				"error", err)
		}
	}

	for _, task := range processing {
		if err := r.taskStore.ResetToPending(ctx, task.ID); err != nil {
			r.logger.Error("failed to reset interrupted task",
				"task_id", task.ID,
				"error", err)
			continue
		}
		if err := r.service.Enqueue(ctx, task); err != nil {
			r.logger.Error("failed to requeue interrupted task",
				"task_id", task.ID,
				"error", err)
		}
	}

	return nil
}

// SweepStuckTasks resets tasks that have sat in processing longer than
// the configured age and requeues them. A task is only stuck when its
// worker died without reaching a terminal status; the CAS reset keeps a
// racing finish from being clobbered.
func (r *Runner) SweepStuckTasks(ctx context.Context) error {
	stuck, err := r.taskStore.GetProcessingOlderThan(ctx, r.config.StuckTaskAge)
	if err != nil {
		return fmt.Errorf("failed to get stuck tasks: %w", err)
	}

	if len(stuck) == 0 {
		return nil
	}

	r.logger.Warn("found stuck tasks", "count", len(stuck))

	for _, task := range stuck {
		if err := r.taskStore.ResetToPending(ctx, task.ID); err != nil {
			if store.IsNotFoundError(err) {
				// The task finished between the query and the reset.
				continue
			}
			r.logger.Error("failed to reset stuck task",
				"task_id", task.ID,
				"error", err)
			continue
		}
		if err := r.service.Enqueue(ctx, task); err != nil {
			r.logger.Error("failed to requeue stuck task",
				"task_id", task.ID,
				"error", err)
		}
	}

	return nil
}
