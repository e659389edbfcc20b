// Package jobs runs the single worker lane that performs image processing, and
// the bounded queue that feeds it.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sevigo/resizer/internal/core"
)

// Queue implements core.JobDispatcher as a bounded FIFO shared by any number of
// producers and exactly one consumer. A full queue suspends producers instead
// of dropping jobs.
type Queue struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
	items    []*core.Job
	capacity int
	closed   bool

	enqueued atomic.Uint64
	waits    atomic.Uint64
	logger   *slog.Logger
}

// NewQueue creates a queue that holds up to capacity waiting jobs.
// If capacity is 0 or negative, it defaults to 1.
func NewQueue(capacity int, logger *slog.Logger) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	q := &Queue{
		items:    make([]*core.Job, 0, capacity),
		capacity: capacity,
		logger:   logger,
	}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends job to the tail of the queue. While the queue is full the
// caller is suspended until the worker frees a slot, the queue is closed, or
// ctx ends.
func (q *Queue) Enqueue(ctx context.Context, job *core.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed && len(q.items) >= q.capacity {
		q.waits.Add(1)
		q.logger.Debug("queue full, waiting for a free slot", "job_id", job.ID, "capacity", q.capacity)

		stop := context.AfterFunc(ctx, q.wake(q.notFull))
		defer stop()

		for !q.closed && len(q.items) >= q.capacity {
			if err := ctx.Err(); err != nil {
				return err
			}
			q.notFull.Wait()
		}
	}

	if q.closed {
		return core.ErrClosed
	}

	job.EnqueuedAt = time.Now()
	q.items = append(q.items, job)
	q.enqueued.Add(1)
	q.notEmpty.Signal()
	return nil
}

// Dequeue removes and returns the job at the head of the queue, waiting while
// the queue is empty. After Close it keeps returning queued jobs until the
// queue is drained, then returns core.ErrClosed.
func (q *Queue) Dequeue(ctx context.Context) (*core.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 && !q.closed {
		stop := context.AfterFunc(ctx, q.wake(q.notEmpty))
		defer stop()
	}

	for len(q.items) == 0 {
		if q.closed {
			return nil, core.ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q.notEmpty.Wait()
	}

	job := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	// Broadcast: a woken producer may give up on its context and leave the
	// slot to someone else.
	q.notFull.Broadcast()
	return job, nil
}

// Close stops the queue from accepting new jobs and wakes every waiter.
// Jobs already queued stay available to Dequeue. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
	q.logger.Info("job queue closed", "pending", len(q.items))
}

// Drain removes and returns every job still waiting in the queue.
func (q *Queue) Drain() []*core.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	drained := q.items
	q.items = make([]*core.Job, 0, q.capacity)
	q.notFull.Broadcast()
	return drained
}

// Len returns the number of waiting jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return q.capacity
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *Queue) wake(cond *sync.Cond) func() {
	return func() {
		q.mu.Lock()
		cond.Broadcast()
		q.mu.Unlock()
	}
}
