package sse_test

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"agent-relay-gateway/pkg/sse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipe(t *testing.T) {
	t.Run("YieldsInOrderThenEOF", func(t *testing.T) {
		src := sse.Pipe(context.Background(), func(ctx context.Context, emit sse.Emit) error {
			for i := 1; i <= 3; i++ {
				if err := emit(i); err != nil {
					return err
				}
			}
			return nil
		})
		defer src.Close()

		for want := 1; want <= 3; want++ {
			got, err := src.Next(context.Background())
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
		_, err := src.Next(context.Background())
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("ProducerError_AfterEvents", func(t *testing.T) {
		boom := errors.New("boom")
		src := sse.Pipe(context.Background(), func(ctx context.Context, emit sse.Emit) error {
			if err := emit("start"); err != nil {
				return err
			}
			return boom
		})
		defer src.Close()

		got, err := src.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "start", got)

		_, err = src.Next(context.Background())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("Backpressure_ProducerWaitsForPull", func(t *testing.T) {
		var emitted atomic.Int32
		src := sse.Pipe(context.Background(), func(ctx context.Context, emit sse.Emit) error {
			for {
				if err := emit("tick"); err != nil {
					return err
				}
				emitted.Add(1)
			}
		})

		_, err := src.Next(context.Background())
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)

		// The producer can only be blocked on the second send.
		assert.LessOrEqual(t, emitted.Load(), int32(1))
		require.NoError(t, src.Close())
	})

	t.Run("Close_StopsProducer", func(t *testing.T) {
		stopped := make(chan error, 1)
		src := sse.Pipe(context.Background(), func(ctx context.Context, emit sse.Emit) error {
			err := emit("never pulled")
			stopped <- err
			return err
		})

		require.NoError(t, src.Close())

		select {
		case err := <-stopped:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("producer still running after Close")
		}
	})

	t.Run("NextHonorsCallerContext", func(t *testing.T) {
		src := sse.Pipe(context.Background(), func(ctx context.Context, emit sse.Emit) error {
			<-ctx.Done()
			return ctx.Err()
		})
		defer src.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := src.Next(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestFromSlice(t *testing.T) {
	src := sse.FromSlice("a", "b")

	got, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", got)

	require.NoError(t, src.Close())
	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestHub(t *testing.T) {
	t.Run("RegisterAndRelease", func(t *testing.T) {
		hub := sse.NewHub()

		ctx, id, release, err := hub.Register(context.Background())
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.Equal(t, 1, hub.Active())
		assert.NoError(t, ctx.Err())

		release()
		assert.Equal(t, 0, hub.Active())
		assert.Error(t, ctx.Err())
	})

	t.Run("Shutdown_CancelsSessions", func(t *testing.T) {
		hub := sse.NewHub()
		ctx1, _, release1, err := hub.Register(context.Background())
		require.NoError(t, err)
		ctx2, _, release2, err := hub.Register(context.Background())
		require.NoError(t, err)
		defer release1()
		defer release2()

		hub.Shutdown()

		assert.ErrorIs(t, ctx1.Err(), context.Canceled)
		assert.ErrorIs(t, ctx2.Err(), context.Canceled)
		assert.Equal(t, 0, hub.Active())

		_, _, _, err = hub.Register(context.Background())
		assert.ErrorIs(t, err, sse.ErrHubClosed)
		assert.Equal(t, 0, hub.Active())
	})
}
