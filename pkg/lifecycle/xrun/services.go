package xrun

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Shutdowner 是支持带超时关闭的组件，例如 *xpool.Pool。
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Drain 返回一个服务函数：阻塞到 ctx 取消，然后关闭 s 并等待其排空。
//
// timeout <= 0 表示无限等待。超时返回 context.DeadlineExceeded，
// 此时 s 仍可能在后台继续排空。
func Drain(s Shutdowner, timeout time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if s == nil {
			return ErrNilShutdowner
		}
		<-ctx.Done()

		shutdownCtx := context.WithoutCancel(ctx)
		if timeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, timeout)
			defer cancel()
		}
		return s.Shutdown(shutdownCtx)
	}
}

// HTTPServerInterface 是 HTTPServer 需要的 http.Server 方法子集。
type HTTPServerInterface interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var _ HTTPServerInterface = (*http.Server)(nil)

// HTTPServer 把 http.Server 包装为随 ctx 优雅关闭的服务函数。
// 正常关闭时返回 Shutdown 的错误（通常为 nil），启动失败时返回启动错误。
func HTTPServer(server HTTPServerInterface, shutdownTimeout time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if server == nil {
			return ErrNilServer
		}
		shutdownErrCh := make(chan error, 1)
		listenDone := make(chan struct{})

		go func() {
			select {
			case <-ctx.Done():
				shutdownCtx := context.Background()
				if shutdownTimeout > 0 {
					var cancel context.CancelFunc
					shutdownCtx, cancel = context.WithTimeout(shutdownCtx, shutdownTimeout)
					defer cancel()
				}
				shutdownErrCh <- server.Shutdown(shutdownCtx)
			case <-listenDone:
			}
		}()

		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			select {
			case shutdownErr := <-shutdownErrCh:
				return shutdownErr
			case <-ctx.Done():
				return <-shutdownErrCh
			default:
				// 外部直接调用了 Shutdown/Close。
				close(listenDone)
				return nil
			}
		}
		close(listenDone)
		return err
	}
}
