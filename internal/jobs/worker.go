// Package jobs is the in-process fallback for background actions when
// Temporal is not configured. One worker goroutine drains a bounded
// queue and routes jobs through the handler registry.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/flowsmith/flowsmith-backend/internal/engine"
	"github.com/flowsmith/flowsmith-backend/internal/jobs/runtime"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
)

type Worker struct {
	log      *logger.Logger
	registry *runtime.Registry
	queue    chan runtime.Job
}

func NewWorker(baseLog *logger.Logger, registry *runtime.Registry, buffer int) *Worker {
	if buffer <= 0 {
		buffer = 64
	}
	return &Worker{
		log:      baseLog.With("component", "JobWorker"),
		registry: registry,
		queue:    make(chan runtime.Job, buffer),
	}
}

func (w *Worker) Enqueue(job runtime.Job) error {
	select {
	case w.queue <- job:
		return nil
	default:
		return fmt.Errorf("job queue full (job_type=%s)", job.Type)
	}
}

// Start drains the queue until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case job := <-w.queue:
				w.run(ctx, job)
			}
		}
	}()
}

func (w *Worker) run(ctx context.Context, job runtime.Job) {
	h, ok := w.registry.Get(job.Type)
	if !ok {
		w.log.Error("no handler for job", "job_type", job.Type)
		return
	}
	if err := h.Run(&runtime.Context{Ctx: ctx, Job: job, Log: w.log}); err != nil {
		w.log.Error("job failed", "job_type", job.Type, "error", err)
	}
}

// ActionExecuteHandler sleeps out the job's start delay, then hands the
// action to the shared executor.
type ActionExecuteHandler struct {
	executor *engine.JobExecutor
}

func NewActionExecuteHandler(executor *engine.JobExecutor) *ActionExecuteHandler {
	return &ActionExecuteHandler{executor: executor}
}

func (h *ActionExecuteHandler) Type() string { return runtime.JobTypeActionExecute }

func (h *ActionExecuteHandler) Run(rc *runtime.Context) error {
	if h.executor == nil {
		return fmt.Errorf("executor not configured")
	}
	if d := rc.Job.Action.Delay; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-rc.Ctx.Done():
			return rc.Ctx.Err()
		case <-timer.C:
		}
	}
	return h.executor.Execute(rc.Ctx, rc.Job.Action)
}

// LocalDispatcher adapts the worker queue to the engine's dispatcher
// interface.
type LocalDispatcher struct {
	worker *Worker
}

func NewLocalDispatcher(worker *Worker) *LocalDispatcher {
	return &LocalDispatcher{worker: worker}
}

func (d *LocalDispatcher) Dispatch(_ context.Context, job engine.BackgroundJob) error {
	return d.worker.Enqueue(runtime.Job{Type: runtime.JobTypeActionExecute, Action: job})
}
