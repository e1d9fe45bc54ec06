// Package xmetrics 提供最小化的观测接口（metrics + tracing）。
//
// 业务代码只依赖 Observer/Span 接口，默认实现基于 OpenTelemetry。
// xpool 通过 Observer 为每个任务的执行开启一个跨度：
//
//	obs, _ := xmetrics.NewOTelObserver()
//	pool, _ := xpool.New(4, xpool.WithObserver(obs))
//
// 也可以直接使用：
//
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xpool",
//		Operation: "task.run",
//	})
//	defer span.End(xmetrics.Result{Err: err})
//
// # 指标命名
//
//   - xtask.operation.total
//   - xtask.operation.duration
//
// 统一属性：component / operation / status。
package xmetrics
