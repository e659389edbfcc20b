package core

import (
	"context"
	"sync"
)

// Result is the outcome of a job: either the encoded image or an error.
type Result struct {
	Data []byte
	Err  error
}

// Reply is a single-use handoff from the worker to the goroutine that created
// the job. It resolves exactly once, either with a Result or by being abandoned.
type Reply struct {
	ch   chan Result
	once sync.Once
}

// NewReply creates an unresolved reply.
func NewReply() *Reply {
	return &Reply{ch: make(chan Result, 1)}
}

// Send resolves the reply with res. It never blocks, even when nobody is
// waiting anymore. Only the first resolution counts; later calls return false.
func (r *Reply) Send(res Result) bool {
	sent := false
	r.once.Do(func() {
		r.ch <- res
		close(r.ch)
		sent = true
	})
	return sent
}

// Abandon resolves the reply without a value. The waiting side observes
// ErrWorkerUnavailable.
func (r *Reply) Abandon() bool {
	abandoned := false
	r.once.Do(func() {
		close(r.ch)
		abandoned = true
	})
	return abandoned
}

// Receive waits for the reply to resolve or for ctx to end. It must be called
// by a single consumer, at most once.
func (r *Reply) Receive(ctx context.Context) ([]byte, error) {
	select {
	case res, ok := <-r.ch:
		if !ok {
			return nil, ErrWorkerUnavailable
		}
		return res.Data, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
