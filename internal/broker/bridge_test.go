package broker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/resizer/internal/config"
	"github.com/sevigo/resizer/internal/core"
	"github.com/sevigo/resizer/internal/jobs"
	"github.com/sevigo/resizer/mocks"
)

type published struct {
	key string
	msg amqp.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	declared   []string
	prefetch   int
	deliveries chan amqp.Delivery
	published  chan published
	publishErr error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		deliveries: make(chan amqp.Delivery, 8),
		published:  make(chan published, 8),
	}
}

func (f *fakeChannel) Qos(prefetchCount, _ int, _ bool) error {
	f.prefetch = prefetchCount
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declared = append(f.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) Consume(_, _ string, _, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published <- published{key: key, msg: msg}
	return nil
}

func (f *fakeChannel) Close() error { return nil }

// ackRecorder implements amqp.Acknowledger.
type ackRecorder struct {
	outcome chan string
}

func (a *ackRecorder) Ack(uint64, bool) error {
	a.outcome <- "ack"
	return nil
}

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	if requeue {
		a.outcome <- "nack-requeue"
	} else {
		a.outcome <- "nack"
	}
	return nil
}

func (a *ackRecorder) Reject(uint64, bool) error {
	a.outcome <- "reject"
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func brokerConfig() config.BrokerConfig {
	return config.BrokerConfig{URL: "amqp://test", RequestQueue: "requests", ResponseQueue: "responses", Prefetch: 2}
}

func delivery(t *testing.T, ack *ackRecorder, body any, replyTo, correlationID string) amqp.Delivery {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case []byte:
		raw = b
	default:
		var err error
		raw, err = json.Marshal(b)
		require.NoError(t, err)
	}
	return amqp.Delivery{
		Acknowledger:  ack,
		Body:          raw,
		ReplyTo:       replyTo,
		CorrelationId: correlationID,
	}
}

func startBridge(t *testing.T, ch *fakeChannel, p core.ImageProcessor) context.CancelFunc {
	t.Helper()
	q := jobs.NewQueue(1, testLogger())
	w := jobs.NewWorker(q, p, testLogger())
	go func() { _ = w.Run(context.Background()) }()

	b := NewBridge(ch, q, brokerConfig(), core.DefaultParams(), testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
		q.Close()
		<-w.Done()
	})
	return cancel
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bridge")
		var zero T
		return zero
	}
}

func TestBridge_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := mocks.NewMockImageProcessor(ctrl)
	w, h := uint16(32), uint16(16)
	p.EXPECT().Process(gomock.Any(), []byte("png"), core.Params{Width: 32, Height: 16}).Return([]byte("small"), nil)

	ch := newFakeChannel()
	startBridge(t, ch, p)

	ack := &ackRecorder{outcome: make(chan string, 1)}
	ch.deliveries <- delivery(t, ack, ResizeRequest{Image: []byte("png"), Width: &w, Height: &h}, "", "corr-1")

	pub := waitFor(t, ch.published)
	assert.Equal(t, "responses", pub.key)
	assert.Equal(t, "corr-1", pub.msg.CorrelationId)
	assert.Equal(t, "application/json", pub.msg.ContentType)

	var resp ResizeResponse
	require.NoError(t, json.Unmarshal(pub.msg.Body, &resp))
	assert.Equal(t, []byte("small"), resp.Succeed)
	assert.Empty(t, resp.Failed)
	assert.Equal(t, "ack", waitFor(t, ack.outcome))

	assert.ElementsMatch(t, []string{"requests", "responses"}, ch.declared)
	assert.Equal(t, 2, ch.prefetch)
}

func TestBridge_FailureIsPublished(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := mocks.NewMockImageProcessor(ctrl)
	p.EXPECT().Process(gomock.Any(), gomock.Any(), core.DefaultParams()).
		Return(nil, core.NewProcessingError("decode", errors.New("unknown format")))

	ch := newFakeChannel()
	startBridge(t, ch, p)

	ack := &ackRecorder{outcome: make(chan string, 1)}
	ch.deliveries <- delivery(t, ack, ResizeRequest{Image: []byte("junk")}, "client-reply", "")

	pub := waitFor(t, ch.published)
	assert.Equal(t, "client-reply", pub.key)
	assert.NotEmpty(t, pub.msg.CorrelationId, "job id is used when no correlation id was sent")

	var resp ResizeResponse
	require.NoError(t, json.Unmarshal(pub.msg.Body, &resp))
	assert.Nil(t, resp.Succeed)
	assert.Equal(t, "decode: unknown format", resp.Failed)
	assert.Equal(t, "ack", waitFor(t, ack.outcome))
}

func TestBridge_MalformedMessageIsRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := mocks.NewMockImageProcessor(ctrl)

	ch := newFakeChannel()
	startBridge(t, ch, p)

	ack := &ackRecorder{outcome: make(chan string, 1)}
	ch.deliveries <- delivery(t, ack, []byte("{not json"), "", "")

	assert.Equal(t, "reject", waitFor(t, ack.outcome))
	assert.Empty(t, ch.published)
}

func TestBridge_PublishFailureRequeues(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := mocks.NewMockImageProcessor(ctrl)
	p.EXPECT().Process(gomock.Any(), gomock.Any(), gomock.Any()).Return([]byte("ok"), nil)

	ch := newFakeChannel()
	ch.publishErr = errors.New("channel closed")
	startBridge(t, ch, p)

	ack := &ackRecorder{outcome: make(chan string, 1)}
	ch.deliveries <- delivery(t, ack, ResizeRequest{Image: []byte("png")}, "", "")

	assert.Equal(t, "nack-requeue", waitFor(t, ack.outcome))
}

func TestBridge_ClosedLaneRequeues(t *testing.T) {
	q := jobs.NewQueue(1, testLogger())
	q.Close()

	ch := newFakeChannel()
	b := NewBridge(ch, q, brokerConfig(), core.DefaultParams(), testLogger())
	ack := &ackRecorder{outcome: make(chan string, 1)}

	b.handle(context.Background(), delivery(t, ack, ResizeRequest{Image: []byte("png")}, "", ""))
	assert.Equal(t, "nack-requeue", waitFor(t, ack.outcome))
}

func TestBridge_QueuedJobIsAnsweredDuringShutdown(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := mocks.NewMockImageProcessor(ctrl)
	started := make(chan struct{})
	release := make(chan struct{})
	p.EXPECT().Process(gomock.Any(), []byte("png"), gomock.Any()).
		DoAndReturn(func(context.Context, []byte, core.Params) ([]byte, error) {
			close(started)
			<-release
			return []byte("small"), nil
		}).Times(1)

	q := jobs.NewQueue(1, testLogger())
	w := jobs.NewWorker(q, p, testLogger())
	go func() { _ = w.Run(context.Background()) }()
	defer func() {
		q.Close()
		<-w.Done()
	}()

	ch := newFakeChannel()
	b := NewBridge(ch, q, brokerConfig(), core.DefaultParams(), testLogger())
	ack := &ackRecorder{outcome: make(chan string, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	go b.handle(ctx, delivery(t, ack, ResizeRequest{Image: []byte("png")}, "", "corr-2"))

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job never reached the worker")
	}
	cancel()
	close(release)

	pub := waitFor(t, ch.published)
	assert.Equal(t, "corr-2", pub.msg.CorrelationId)
	var resp ResizeResponse
	require.NoError(t, json.Unmarshal(pub.msg.Body, &resp))
	assert.Equal(t, []byte("small"), resp.Succeed)
	assert.Equal(t, "ack", waitFor(t, ack.outcome), "a processed job must not be requeued")
}

func TestBridge_AbandonedDuringShutdownRequeues(t *testing.T) {
	q := jobs.NewQueue(1, testLogger())
	ch := newFakeChannel()
	b := NewBridge(ch, q, brokerConfig(), core.DefaultParams(), testLogger())
	ack := &ackRecorder{outcome: make(chan string, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	go b.handle(ctx, delivery(t, ack, ResizeRequest{Image: []byte("png")}, "", ""))

	// No worker runs: once the job is queued, stop the bridge and drop the
	// job the way a hard-stopped worker does.
	require.Eventually(t, func() bool { return q.Len() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	for _, job := range q.Drain() {
		job.Reply.Abandon()
	}

	assert.Equal(t, "nack-requeue", waitFor(t, ack.outcome))
	assert.Empty(t, ch.published)
}

func TestBridge_DeliveryChannelClosed(t *testing.T) {
	ch := newFakeChannel()
	close(ch.deliveries)

	b := NewBridge(ch, jobs.NewQueue(1, testLogger()), brokerConfig(), core.DefaultParams(), testLogger())
	err := b.Run(context.Background())
	assert.Error(t, err)
}

func TestResizeRequest_Params(t *testing.T) {
	w := uint16(0)
	tests := []struct {
		name string
		req  ResizeRequest
		want core.Params
	}{
		{name: "absent uses defaults", req: ResizeRequest{}, want: core.Params{Width: 180, Height: 180}},
		{name: "explicit zero is kept", req: ResizeRequest{Width: &w}, want: core.Params{Width: 0, Height: 180}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.Params(core.DefaultParams()))
		})
	}
}
