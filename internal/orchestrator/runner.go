package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"thumbcode/internal/logging"
	"thumbcode/internal/observability"
)

const tracerName = "thumbcode/orchestrator"

// Executor runs a single task and produces its outcome. Implementations are
// expected to honor ctx cancellation and to report task-level failures
// through the returned TaskResult rather than the error value; the error is
// reserved for infrastructure problems that should stop the whole run.
type Executor interface {
	Execute(ctx context.Context, task *AgentTask) (TaskResult, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, task *AgentTask) (TaskResult, error)

func (f ExecutorFunc) Execute(ctx context.Context, task *AgentTask) (TaskResult, error) {
	return f(ctx, task)
}

// RunnerConfig controls how the runner drains the queue.
type RunnerConfig struct {
	// MaxWorkers bounds the number of tasks executed concurrently.
	MaxWorkers int
	// PollInterval is how long the runner waits before re-evaluating the
	// plan when no task is ready but some are still waiting.
	PollInterval time.Duration
}

// Runner repeatedly evaluates the execution plan and dispatches ready tasks
// to an Executor until the queue is drained or the context is cancelled.
type Runner struct {
	manager  *Manager
	executor Executor
	config   RunnerConfig
	metrics  *PromMetrics
	logger   logging.Logger
}

// NewRunner builds a Runner using the shared package-level collectors.
func NewRunner(manager *Manager, executor Executor, config RunnerConfig, logger logging.Logger) *Runner {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 2
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 250 * time.Millisecond
	}
	return &Runner{
		manager:  manager,
		executor: executor,
		config:   config,
		metrics:  DefaultPromMetrics(),
		logger:   logging.OrNop(logger),
	}
}

// WithMetrics replaces the metrics sink, mainly for tests that need an
// isolated registry.
func (r *Runner) WithMetrics(metrics *PromMetrics) *Runner {
	r.metrics = metrics
	return r
}

// Run drains the queue. It returns when every queued task has reached a
// terminal state, when only blocked or unsatisfiable tasks remain, or when
// ctx is cancelled. Tasks that can never become ready are left queued so the
// caller can inspect them through ExecutionPlan.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		plan := r.manager.ExecutionPlan()
		if len(plan.Ready) == 0 {
			if len(plan.Waiting) == 0 {
				if len(plan.Blocked) > 0 {
					r.logger.Warn("run finished with %d blocked task(s)", len(plan.Blocked))
				}
				return nil
			}
			if !r.anyInProgress(plan.Waiting) {
				// Nothing running and nothing ready: the remaining
				// waiting tasks depend on work that will never
				// complete in this run.
				r.logger.Warn("run stalled with %d waiting task(s)", len(plan.Waiting))
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.config.PollInterval):
			}
			continue
		}

		if err := r.dispatch(ctx, plan.Ready); err != nil {
			return err
		}
	}
}

func (r *Runner) anyInProgress(ids []string) bool {
	for _, id := range ids {
		task, err := r.manager.Get(id)
		if err != nil {
			continue
		}
		if task.Status == StatusInProgress {
			return true
		}
	}
	return false
}

// dispatch executes one batch of ready tasks with bounded concurrency.
func (r *Runner) dispatch(ctx context.Context, ready []string) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.config.MaxWorkers)

	for _, id := range ready {
		task, err := r.manager.Get(id)
		if err != nil {
			r.logger.Warn("skipping task %s: %v", id, err)
			continue
		}
		if err := r.manager.Start(id); err != nil {
			r.logger.Warn("skipping task %s: %v", id, err)
			continue
		}
		group.Go(func() error {
			return r.runOne(groupCtx, task)
		})
	}

	return group.Wait()
}

func (r *Runner) runOne(ctx context.Context, task *AgentTask) error {
	role := string(task.Assignee)
	r.metrics.IncActiveTasks()
	defer r.metrics.DecActiveTasks()

	ctx, span := otel.Tracer(tracerName).Start(ctx, observability.SpanTaskExecute,
		trace.WithAttributes(observability.TaskAttrs(task.ID, role)...))
	defer span.End()

	started := time.Now()
	r.logger.Info("executing task %s (%s) as %s", task.ID, task.Title, role)

	result, err := r.executor.Execute(ctx, task)
	elapsed := time.Since(started)
	if err != nil {
		span.SetAttributes(observability.ErrorAttrs(err)...)
		r.metrics.ObserveTaskDuration(role, "error", elapsed)
		r.metrics.IncTaskFailure(role, "executor_error")
		failure := TaskResult{
			TaskID:      task.ID,
			AgentID:     role,
			Success:     false,
			Duration:    elapsed,
			Result:      err.Error(),
			StartedAt:   started,
			CompletedAt: time.Now(),
		}
		if completeErr := r.manager.Complete(task.ID, failure); completeErr != nil {
			r.logger.Error("recording failure for task %s: %v", task.ID, completeErr)
		}
		return fmt.Errorf("execute task %s: %w", task.ID, err)
	}

	if result.Duration == 0 {
		result.Duration = elapsed
	}
	if result.StartedAt.IsZero() {
		result.StartedAt = started
	}
	if result.CompletedAt.IsZero() {
		result.CompletedAt = time.Now()
	}
	if result.AgentID == "" {
		result.AgentID = role
	}
	status := "completed"
	if !result.Success {
		status = "failed"
		r.metrics.IncTaskFailure(role, "task_failed")
	}
	span.SetAttributes(attribute.String(observability.AttrStatus, status))
	r.metrics.ObserveTaskDuration(role, status, elapsed)

	if err := r.manager.Complete(task.ID, result); err != nil {
		return fmt.Errorf("completing task %s: %w", task.ID, err)
	}
	r.logger.Info("task %s finished with status %s in %s", task.ID, status, elapsed.Round(time.Millisecond))
	return nil
}
