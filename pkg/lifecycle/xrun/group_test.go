package xrun

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtask/pkg/util/xpool"
)

func TestGroup_Empty(t *testing.T) {
	g, _ := NewGroup(context.Background())
	assert.NoError(t, g.Wait())
}

func TestGroup_ServiceError(t *testing.T) {
	errBoom := errors.New("boom")

	g, _ := NewGroup(context.Background(), WithName("test"))
	g.Go(func(ctx context.Context) error { return errBoom })
	g.GoWithName("waiter", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, g.Wait(), errBoom)
}

func TestGroup_CancelWithCause(t *testing.T) {
	errStop := errors.New("stop requested")

	g, _ := NewGroup(context.Background())
	g.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	g.Cancel(errStop)

	assert.ErrorIs(t, g.Wait(), errStop)
}

func TestGroup_CancelWithoutCause(t *testing.T) {
	g, ctx := NewGroup(context.Background())
	g.Go(func(context.Context) error { return nil })
	g.Cancel(nil)

	assert.NoError(t, g.Wait())
	assert.Error(t, ctx.Err())
}

func TestGroup_NilFunc(t *testing.T) {
	//nolint:staticcheck // 测试 nil ctx 归一化
	g, _ := NewGroup(nil, nil)
	g.Go(nil)
	assert.ErrorIs(t, g.Wait(), ErrNilFunc)
}

func TestRunWithOptions_Signal(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	ctx := withTestSigChan(context.Background(), sigCh)

	var stopped atomic.Bool
	errCh := make(chan error, 1)
	go func() {
		errCh <- RunWithOptions(ctx, []Option{WithSignals([]os.Signal{syscall.SIGTERM})},
			func(ctx context.Context) error {
				<-ctx.Done()
				stopped.Store(true)
				return ctx.Err()
			},
		)
	}()

	sigCh <- syscall.SIGTERM

	select {
	case err := <-errCh:
		var sigErr *SignalError
		require.ErrorAs(t, err, &sigErr)
		assert.Equal(t, syscall.SIGTERM, sigErr.Signal)
		assert.ErrorIs(t, err, ErrSignal)
		assert.True(t, stopped.Load())
	case <-time.After(time.Second):
		t.Fatal("run did not exit after signal")
	}
}

func TestRunWithOptions_ParentCancelIsClean(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var drained atomic.Bool
	err := RunWithOptions(ctx, []Option{WithSignals(nil)},
		func(ctx context.Context) error {
			<-ctx.Done()
			drained.Store(true)
			return nil
		},
		func(context.Context) error {
			cancel()
			return nil
		},
	)
	assert.NoError(t, err)
	assert.True(t, drained.Load())
}

func TestSignalError(t *testing.T) {
	assert.Equal(t, "received signal <nil>", (&SignalError{}).Error())
	assert.Equal(t, "received signal interrupt", (&SignalError{Signal: os.Interrupt}).Error())
	assert.Len(t, DefaultSignals(), 4)
}

type fakeShutdowner struct {
	calls    atomic.Int32
	deadline atomic.Bool
}

func (f *fakeShutdowner) Shutdown(ctx context.Context) error {
	f.calls.Add(1)
	_, ok := ctx.Deadline()
	f.deadline.Store(ok)
	return nil
}

func TestDrain(t *testing.T) {
	s := &fakeShutdowner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, Drain(s, time.Second)(ctx))
	assert.Equal(t, int32(1), s.calls.Load())
	assert.True(t, s.deadline.Load())

	require.NoError(t, Drain(s, 0)(ctx))
	assert.False(t, s.deadline.Load())

	assert.ErrorIs(t, Drain(nil, 0)(ctx), ErrNilShutdowner)
}

func TestDrain_PoolFinishesQueuedWork(t *testing.T) {
	pool, err := xpool.New(2)
	require.NoError(t, err)

	var ran atomic.Int32
	futures := make([]*xpool.Future[struct{}], 0, 50)
	for range 50 {
		f, err := xpool.Go(pool, func() error {
			time.Sleep(time.Millisecond)
			ran.Add(1)
			return nil
		})
		require.NoError(t, err)
		futures = append(futures, f)
	}

	g, _ := NewGroup(context.Background())
	g.Go(Drain(pool, 5*time.Second))
	g.Cancel(nil)
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(50), ran.Load())
	for _, f := range futures {
		_, err := f.Get()
		assert.NoError(t, err)
	}
	_, err = xpool.Go(pool, func() error { return nil })
	assert.ErrorIs(t, err, xpool.ErrPoolClosed)
}

type fakeServer struct {
	stop      chan struct{}
	listenErr error
}

func (s *fakeServer) ListenAndServe() error {
	if s.listenErr != nil {
		return s.listenErr
	}
	<-s.stop
	return http.ErrServerClosed
}

func (s *fakeServer) Shutdown(context.Context) error {
	close(s.stop)
	return nil
}

func TestHTTPServer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &fakeServer{stop: make(chan struct{})}

	errCh := make(chan error, 1)
	go func() { errCh <- HTTPServer(srv, time.Second)(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("HTTPServer did not stop")
	}
}

func TestHTTPServer_ListenError(t *testing.T) {
	errPort := errors.New("address in use")
	err := HTTPServer(&fakeServer{listenErr: errPort}, 0)(context.Background())
	assert.ErrorIs(t, err, errPort)

	assert.ErrorIs(t, HTTPServer(nil, 0)(context.Background()), ErrNilServer)
}
