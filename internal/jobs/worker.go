package jobs

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/sevigo/resizer/internal/core"
)

// Worker is the only goroutine that calls the image processor. It takes jobs
// from the queue one at a time and resolves each job's reply exactly once.
type Worker struct {
	queue     *Queue
	processor core.ImageProcessor
	logger    *slog.Logger

	running      atomic.Bool
	busy         atomic.Bool
	completed    atomic.Uint64
	failed       atomic.Uint64
	panics       atomic.Uint64
	abandoned    atomic.Uint64
	lastDuration atomic.Int64
	lastWait     atomic.Int64

	done chan struct{}
}

// NewWorker creates a worker consuming from queue.
func NewWorker(queue *Queue, processor core.ImageProcessor, logger *slog.Logger) *Worker {
	return &Worker{
		queue:     queue,
		processor: processor,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Run processes jobs until the queue is closed and drained, or until ctx is
// cancelled. On return the queue is closed and every job still waiting in it
// has been abandoned. Run must be called once.
func (w *Worker) Run(ctx context.Context) error {
	w.running.Store(true)
	w.logger.Info("starting resize worker", "queue_capacity", w.queue.Cap())

	defer close(w.done)
	defer w.running.Store(false)
	defer w.shutdown()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, core.ErrClosed) {
				w.logger.Info("job queue drained, stopping resize worker")
				return nil
			}
			return err
		}
		w.process(ctx, job)
	}
}

// Done is closed once Run has returned.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// shutdown refuses further jobs and abandons whatever is left in the queue.
func (w *Worker) shutdown() {
	w.queue.Close()
	pending := w.queue.Drain()
	for _, job := range pending {
		if job.Reply.Abandon() {
			w.abandoned.Add(1)
		}
	}
	if len(pending) > 0 {
		w.logger.Warn("abandoned queued jobs on worker shutdown", "count", len(pending))
	}
}

// process runs a single job and resolves its reply. A panic in the processor
// abandons only this job; the worker keeps going.
func (w *Worker) process(ctx context.Context, job *core.Job) {
	w.busy.Store(true)
	start := time.Now()
	if !job.EnqueuedAt.IsZero() {
		w.lastWait.Store(int64(start.Sub(job.EnqueuedAt)))
	}

	defer func() {
		w.busy.Store(false)
		w.lastDuration.Store(int64(time.Since(start)))
		if r := recover(); r != nil {
			w.panics.Add(1)
			job.Reply.Abandon()
			w.logger.Error("image processor panicked",
				"job_id", job.ID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	w.logger.Debug("worker processing job",
		"job_id", job.ID,
		"width", job.Params.Width,
		"height", job.Params.Height,
		"bytes", len(job.Payload),
	)

	data, err := w.processor.Process(ctx, job.Payload, job.Params)
	if err != nil {
		var perr *core.ProcessingError
		if !errors.As(err, &perr) {
			err = core.NewProcessingError("process", err)
		}
		w.failed.Add(1)
		w.logger.Warn("resize job failed", "job_id", job.ID, "error", err)
		job.Reply.Send(core.Result{Err: err})
		return
	}

	w.completed.Add(1)
	w.logger.Info("resize job finished",
		"job_id", job.ID,
		"width", job.Params.Width,
		"height", job.Params.Height,
		"bytes", len(data),
		"duration", time.Since(start),
	)
	job.Reply.Send(core.Result{Data: data})
}

// Stats returns a snapshot of the worker and its queue.
func (w *Worker) Stats() core.Stats {
	return core.Stats{
		Running:            w.running.Load(),
		Busy:               w.busy.Load(),
		QueueLength:        w.queue.Len(),
		QueueCapacity:      w.queue.Cap(),
		Enqueued:           w.queue.enqueued.Load(),
		BackpressureWaits:  w.queue.waits.Load(),
		Completed:          w.completed.Load(),
		Failed:             w.failed.Load(),
		Panics:             w.panics.Load(),
		Abandoned:          w.abandoned.Load(),
		LastDurationMillis: time.Duration(w.lastDuration.Load()).Milliseconds(),
		LastWaitMillis:     time.Duration(w.lastWait.Load()).Milliseconds(),
	}
}
