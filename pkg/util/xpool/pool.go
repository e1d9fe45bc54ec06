package xpool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/omeyang/xtask/pkg/observability/xmetrics"
)

// maxWorkers worker 数量上限，防止误配置创建海量 goroutine。
const maxWorkers = 1 << 16

var _ io.Closer = (*Pool)(nil)

// Pool 是固定大小的 worker pool。
//
// worker 在 New 中一次性启动，生命周期内数量不变，
// 直到 Shutdown/Close 后排空队列退出。
type Pool struct {
	workers int
	queue   *taskQueue
	opts    options
	logger  *slog.Logger

	wg           sync.WaitGroup
	shutdownOnce sync.Once
	done         chan struct{}

	running   atomic.Int64
	completed atomic.Uint64
	failed    atomic.Uint64
	panicked  atomic.Uint64
}

// New 创建 pool 并立即启动 workers 个 worker。
// workers 必须在 [1, 65536] 范围内，否则返回 ErrInvalidWorkers。
func New(workers int, opts ...Option) (*Pool, error) {
	if workers < 1 || workers > maxWorkers {
		return nil, fmt.Errorf("%w: %d, must be in [1, %d]", ErrInvalidWorkers, workers, maxWorkers)
	}

	o := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&o)
	}

	logger := o.logger
	if o.name != "" {
		logger = logger.With(slog.String("pool", o.name))
	}

	p := &Pool{
		workers: workers,
		queue:   newTaskQueue(),
		opts:    o,
		logger:  logger,
		done:    make(chan struct{}),
	}

	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}

	logger.Debug("xpool: started", slog.Int("workers", workers))
	return p, nil
}

// worker 循环：在 take 中等待，执行任务，直到 take 报告关闭且队列已空。
//
// 任务调用 runtime.Goexit 会让当前 goroutine 在 execute 中退出，
// 此时先补一个新 worker 再 Done，wg 计数与 worker 数量保持不变。
func (p *Pool) worker() {
	drained := false
	defer func() {
		if !drained {
			p.logger.Warn("xpool: worker exited by runtime.Goexit, replacing")
			p.wg.Add(1)
			go p.worker()
		}
		p.wg.Done()
	}()
	for {
		t, ok := p.queue.take()
		if !ok {
			drained = true
			return
		}
		p.execute(t)
	}
}

// execute 运行一个任务。统计与跨度在 defer 中完成，Goexit 时同样生效。
func (p *Pool) execute(t task) {
	p.running.Add(1)

	_, span := xmetrics.Start(context.Background(), p.opts.observer, xmetrics.SpanOptions{
		Component: "xpool",
		Operation: "task.run",
		Attrs: []xmetrics.Attr{
			xmetrics.String("pool", p.opts.name),
			xmetrics.String("task_id", t.id()),
			xmetrics.Int("workers", p.workers),
			xmetrics.Duration("queue_wait", time.Since(t.queuedAt())),
		},
	})

	err := ErrTaskGoexit
	defer func() {
		span.End(xmetrics.Result{Err: err})
		p.record(t, err)
		p.running.Add(-1)
	}()
	err = t.run()
}

// record 更新计数并记录失败日志。
func (p *Pool) record(t task, err error) {
	if err != nil {
		p.failed.Add(1)
		var pe *PanicError
		if errors.As(err, &pe) {
			p.panicked.Add(1)
			p.logger.Error("xpool: task panic recovered",
				slog.String("task_id", t.id()),
				slog.Any("panic", pe.Value),
				slog.String("stack", string(pe.Stack)),
			)
		} else {
			p.logger.Debug("xpool: task failed",
				slog.String("task_id", t.id()),
				slog.Any("error", err),
			)
		}
	}
	p.completed.Add(1)
}

// Submit 提交一个返回值类型为 T 的任务，立即返回其 Future。
//
// fn 为 nil 时返回 ErrNilTask；pool 已关闭时返回 ErrPoolClosed。
// 两种情况下任务都不会入队。
func Submit[T any](p *Pool, fn func() (T, error)) (*Future[T], error) {
	if fn == nil {
		return nil, ErrNilTask
	}
	f := newFuture[T]()
	if err := p.queue.push(&futureTask[T]{fn: fn, future: f, queued: time.Now()}); err != nil {
		return nil, err
	}
	return f, nil
}

// Call 提交 fn(a)。a 在提交时按值拷贝。
func Call[A, R any](p *Pool, fn func(A) (R, error), a A) (*Future[R], error) {
	if fn == nil {
		return nil, ErrNilTask
	}
	return Submit(p, func() (R, error) { return fn(a) })
}

// Call2 提交 fn(a, b)。a、b 在提交时按值拷贝。
func Call2[A, B, R any](p *Pool, fn func(A, B) (R, error), a A, b B) (*Future[R], error) {
	if fn == nil {
		return nil, ErrNilTask
	}
	return Submit(p, func() (R, error) { return fn(a, b) })
}

// Go 提交一个只关心是否出错的任务。
func Go(p *Pool, fn func() error) (*Future[struct{}], error) {
	if fn == nil {
		return nil, ErrNilTask
	}
	return Submit(p, func() (struct{}, error) { return struct{}{}, fn() })
}

// Shutdown 停止接收新任务，并等待 worker 执行完队列中所有任务后退出。
//
// ctx 结束时返回 ctx.Err()，此时 worker 仍在后台排空队列，可通过 Done() 等待。
// 可重复调用，之后的调用只会再次等待。
func (p *Pool) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}

	p.shutdownOnce.Do(func() {
		p.queue.close()
		p.logger.Debug("xpool: shutting down", slog.Int("pending", p.queue.length()))
		go func() {
			p.wg.Wait()
			p.logger.Debug("xpool: stopped")
			close(p.done)
		}()
	})

	select {
	case <-p.done:
		return nil
	default:
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 等价于 Shutdown(context.Background())，始终返回 nil。
func (p *Pool) Close() error {
	return p.Shutdown(context.Background())
}

// Done 返回在所有 worker 退出后关闭的 channel。Shutdown 之前永远不会关闭。
func (p *Pool) Done() <-chan struct{} {
	return p.done
}

// Workers 返回 worker 数量。
func (p *Pool) Workers() int {
	return p.workers
}

// Name 返回 pool 名称。
func (p *Pool) Name() string {
	return p.opts.name
}

// Pending 返回队列中等待执行的任务数。
func (p *Pool) Pending() int {
	return p.queue.length()
}
