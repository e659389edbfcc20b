package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReply_SendThenReceive(t *testing.T) {
	r := NewReply()
	require.True(t, r.Send(Result{Data: []byte("img")}))

	data, err := r.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), data)
}

func TestReply_ResolvesOnce(t *testing.T) {
	tests := []struct {
		name    string
		resolve func(r *Reply) bool
		wantErr error
	}{
		{
			name:    "second send is ignored",
			resolve: func(r *Reply) bool { return r.Send(Result{Err: errors.New("late")}) },
		},
		{
			name:    "abandon after send is ignored",
			resolve: func(r *Reply) bool { return r.Abandon() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReply()
			require.True(t, r.Send(Result{Data: []byte("first")}))
			assert.False(t, tt.resolve(r))

			data, err := r.Receive(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []byte("first"), data)
		})
	}
}

func TestReply_Abandon(t *testing.T) {
	r := NewReply()
	require.True(t, r.Abandon())
	assert.False(t, r.Send(Result{Data: []byte("x")}))

	_, err := r.Receive(context.Background())
	assert.ErrorIs(t, err, ErrWorkerUnavailable)
}

func TestReply_ReceiveHonoursContext(t *testing.T) {
	r := NewReply()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// A send after the consumer left must not block.
	done := make(chan struct{})
	go func() {
		r.Send(Result{Data: []byte("discarded")})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked after the consumer stopped waiting")
	}
}

func TestReply_CarriesError(t *testing.T) {
	r := NewReply()
	perr := NewProcessingError("decode", errors.New("bad header"))
	r.Send(Result{Err: perr})

	_, err := r.Receive(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProcessing)
	assert.Equal(t, "decode: bad header", err.Error())
}

func TestProcessingError_Is(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := fmt.Errorf("job 1: %w", NewProcessingError("decode", cause))

	var perr *ProcessingError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "decode", perr.Stage)
	assert.ErrorIs(t, err, ErrProcessing)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrClosed)
}

func TestNewJob(t *testing.T) {
	a := NewJob([]byte("a"), DefaultParams())
	b := NewJob([]byte("b"), Params{Width: 10, Height: 20})

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotNil(t, a.Reply)
	assert.Equal(t, Params{Width: 180, Height: 180}, a.Params)
	assert.Equal(t, uint16(20), b.Params.Height)
}
