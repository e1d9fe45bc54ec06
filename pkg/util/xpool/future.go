package xpool

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Future 是一次提交的结果句柄。
//
// 结果只由执行该任务的 worker 写入一次，之后不可变，
// 因此 Get 可以被重复调用或被多个 goroutine 同时调用，得到同一结果。
type Future[T any] struct {
	id    string
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}
}

// complete 写入结果，只能调用一次。
func (f *Future[T]) complete(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// ID 返回提交时分配的任务 ID，与日志和 trace 中的 task_id 一致。
func (f *Future[T]) ID() string {
	return f.id
}

// Done 返回一个在结果写入后关闭的 channel。
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Get 阻塞直到任务完成，返回任务的值或错误。
// 任务 panic 时返回 *PanicError。
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.value, f.err
}

// GetContext 与 Get 相同，但在 ctx 结束时提前返回 ctx 的错误。
// 提前返回不会取消任务，之后仍可再次 Get 到结果。
func (f *Future[T]) GetContext(ctx context.Context) (T, error) {
	var zero T
	if ctx == nil {
		return zero, ErrNilContext
	}
	select {
	case <-f.done:
		return f.value, f.err
	default:
	}
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// futureTask 把调用方的闭包与它的 Future 配对。
type futureTask[T any] struct {
	fn     func() (T, error)
	future *Future[T]
	queued time.Time
}

func (t *futureTask[T]) id() string {
	return t.future.id
}

func (t *futureTask[T]) queuedAt() time.Time {
	return t.queued
}

// run 执行闭包并写入 Future，Future 总会被完成：
// panic 转换为 *PanicError，runtime.Goexit 转换为 ErrTaskGoexit。
func (t *futureTask[T]) run() (err error) {
	var value T
	returned := false
	defer func() {
		r := recover()
		switch {
		case r != nil:
			var zero T
			value, err = zero, newPanicError(r)
		case !returned:
			var zero T
			value, err = zero, ErrTaskGoexit
		}
		t.future.complete(value, err)
	}()
	value, err = t.fn()
	returned = true
	return err
}
