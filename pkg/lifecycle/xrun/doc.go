// Package xrun 基于 errgroup + context 管理进程内服务的并发运行与协调关闭。
//
// 任一服务返回错误、父 context 取消或收到终止信号时，所有服务的 ctx 被取消。
// xtask 用它把 worker pool、指标服务和业务负载放在同一个生命周期里：
//
//	err := xrun.RunWithOptions(ctx, []xrun.Option{xrun.WithName("bench")},
//	    xrun.Drain(pool, 30*time.Second),
//	    xrun.HTTPServer(metricsServer, 5*time.Second),
//	)
//	var sigErr *xrun.SignalError
//	if errors.As(err, &sigErr) {
//	    log.Printf("received signal: %v", sigErr.Signal)
//	}
//
// Wait 的错误语义：
//   - 服务返回的非 context.Canceled 错误原样返回（仅第一个）
//   - Group 被 Cancel(cause) 或收到信号时返回该 cause
//   - 无显式 cause 的取消返回 nil
//
// [errgroup]: https://pkg.go.dev/golang.org/x/sync/errgroup
package xrun
