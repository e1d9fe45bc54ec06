package xpool

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	// ErrPoolClosed 表示 pool 已开始关闭，不再接受任务。
	ErrPoolClosed = errors.New("xpool: pool is closed")

	// ErrInvalidWorkers 表示 worker 数量无效。
	ErrInvalidWorkers = errors.New("xpool: invalid worker count")

	// ErrNilTask 表示提交的任务函数为 nil。
	ErrNilTask = errors.New("xpool: task cannot be nil")

	// ErrNilContext 表示 context 参数为 nil。
	ErrNilContext = errors.New("xpool: nil context")

	// ErrTaskPanicked 表示任务执行时发生 panic。
	// 使用 errors.Is(err, ErrTaskPanicked) 判断，errors.As 获取 *PanicError。
	ErrTaskPanicked = errors.New("xpool: task panicked")

	// ErrTaskGoexit 表示任务调用了 runtime.Goexit（例如 t.FailNow），没有正常返回。
	// 执行它的 worker 会被替换，pool 的 worker 数量不变。
	ErrTaskGoexit = errors.New("xpool: task exited via runtime.Goexit")
)

// PanicError 记录任务 panic 的值和发生时的堆栈。
type PanicError struct {
	Value any
	Stack []byte
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

// Error 实现 error 接口。
func (e *PanicError) Error() string {
	return fmt.Sprintf("xpool: task panicked: %v", e.Value)
}

// Is 支持 errors.Is(err, ErrTaskPanicked)。
func (e *PanicError) Is(target error) bool {
	return target == ErrTaskPanicked
}

// Unwrap 在 panic 值本身是 error 时返回它（例如 runtime.Error）。
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
