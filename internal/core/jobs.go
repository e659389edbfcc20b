// Package core defines the essential interfaces and data structures that form the
// backbone of the resize service. The HTTP handlers, the broker bridge and the
// worker lane only talk to each other through the types declared here.
package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultDimension is used for width or height when a request does not
// provide a usable value.
const DefaultDimension uint16 = 180

// Params holds the requested output dimensions of a resize job.
type Params struct {
	Width  uint16 `json:"width"`
	Height uint16 `json:"height"`
}

// DefaultParams returns the 180x180 parameters applied to requests without
// explicit dimensions.
func DefaultParams() Params {
	return Params{Width: DefaultDimension, Height: DefaultDimension}
}

// Job is a single unit of work handed from a request handler to the worker lane.
// The Reply is owned by the job until the worker resolves it.
type Job struct {
	ID         string
	Payload    []byte
	Params     Params
	Reply      *Reply
	EnqueuedAt time.Time
}

// NewJob creates a job with a fresh id and a fresh, unresolved reply.
func NewJob(payload []byte, params Params) *Job {
	return &Job{
		ID:      uuid.NewString(),
		Payload: payload,
		Params:  params,
		Reply:   NewReply(),
	}
}

// JobDispatcher defines the contract for the bounded queue sitting in front of
// the worker lane. Producers block inside Enqueue while the queue is full, which
// is how backpressure reaches the request handlers.
type JobDispatcher interface {
	// Enqueue appends the job to the queue, waiting for a free slot if needed.
	// It returns ErrClosed once the worker lane has shut down, or the context
	// error if the caller gives up before a slot frees.
	Enqueue(ctx context.Context, job *Job) error
}

// ImageProcessor performs the blocking decode, resize and encode cycle. It is
// only ever invoked from the worker lane.
//
//go:generate mockgen -destination=../../mocks/mock_image_processor.go -package=mocks . ImageProcessor
type ImageProcessor interface {
	Process(ctx context.Context, payload []byte, params Params) ([]byte, error)
}

// ResultCache stores encoded resize results keyed by input digest and size.
//
//go:generate mockgen -destination=../../mocks/mock_result_cache.go -package=mocks . ResultCache
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// StatsReporter exposes a point-in-time snapshot of the worker lane.
type StatsReporter interface {
	Stats() Stats
}

// Stats is a snapshot of queue occupancy and worker counters.
type Stats struct {
	Running            bool   `json:"running" yaml:"running"`
	Busy               bool   `json:"busy" yaml:"busy"`
	QueueLength        int    `json:"queue_length" yaml:"queue_length"`
	QueueCapacity      int    `json:"queue_capacity" yaml:"queue_capacity"`
	Enqueued           uint64 `json:"enqueued" yaml:"enqueued"`
	BackpressureWaits  uint64 `json:"backpressure_waits" yaml:"backpressure_waits"`
	Completed          uint64 `json:"completed" yaml:"completed"`
	Failed             uint64 `json:"failed" yaml:"failed"`
	Panics             uint64 `json:"panics" yaml:"panics"`
	Abandoned          uint64 `json:"abandoned" yaml:"abandoned"`
	LastDurationMillis int64  `json:"last_duration_ms" yaml:"last_duration_ms"`
	LastWaitMillis     int64  `json:"last_wait_ms" yaml:"last_wait_ms"`
}
