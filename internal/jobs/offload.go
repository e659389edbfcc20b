package jobs

import (
	"context"
	"fmt"

	"github.com/sevigo/resizer/internal/core"
)

// Offload submits payload to the worker lane and suspends the calling goroutine
// until the result is available. The returned error is core.ErrClosed when the
// job could not be queued, core.ErrWorkerUnavailable when the worker dropped it,
// a *core.ProcessingError when resizing failed, or the context error.
func Offload(ctx context.Context, dispatcher core.JobDispatcher, payload []byte, params core.Params) ([]byte, error) {
	return OffloadJob(ctx, dispatcher, core.NewJob(payload, params))
}

// OffloadJob is Offload for a job built by the caller, for callers that need
// the job id before the result arrives.
func OffloadJob(ctx context.Context, dispatcher core.JobDispatcher, job *core.Job) ([]byte, error) {
	if err := dispatcher.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to queue job %s: %w", job.ID, err)
	}
	return job.Reply.Receive(ctx)
}
