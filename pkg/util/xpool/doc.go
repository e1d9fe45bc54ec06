// Package xpool 提供固定大小的 worker pool，提交任务后返回 Future 用于获取结果。
//
// Pool 在创建时启动固定数量的 worker goroutine，所有 worker 共享一个
// FIFO 任务队列（一把互斥锁 + 一个条件变量）。调用方提交任务后立即拿到
// Future，稍后通过 Get 阻塞等待结果。
//
//	pool, err := xpool.New(4)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	f, err := xpool.Call2(pool, add, 10, 20)
//	if err != nil {
//		return err
//	}
//	sum, err := f.Get() // 30
//
// # 语义
//
//   - 任务按提交顺序开始执行（FIFO），完成顺序不做保证
//   - 任务返回的 error 原样交给 Future.Get；任务 panic 被转换为 *PanicError，
//     worker 不会因此退出
//   - 任务调用 runtime.Goexit 时 Future 得到 ErrTaskGoexit，
//     退出的 worker 会被替换，worker 数量不变
//   - Future.Get 可重复调用，返回缓存的同一结果
//   - Get 本身没有超时；需要超时请使用 GetContext 或在 Done() 上 select，
//     超时只影响调用方，任务本身不会被取消
//   - Shutdown/Close 之后 Submit 返回 ErrPoolClosed，且不入队
//   - 关闭是优雅排空：关闭前已入队的任务全部执行完毕后 worker 才退出
//
// # 注意事项
//
//   - 不要在任务内部对同一个 pool 的 Future 调用 Get，所有 worker
//     都在等待时会死锁
//   - 不要在任务内部调用 Close/Shutdown(context.Background())，
//     worker 会等待自己退出
//   - 参数通过 Call/Call2 在提交时按值拷贝进闭包；直接使用 Submit 时，
//     闭包捕获的变量由调用方负责
//
// # 关闭策略
//
// Close 等价于 Shutdown(context.Background())，一直等待所有 worker 退出。
// Shutdown(ctx) 在 ctx 到期时返回 ctx 错误，残留 worker 继续在后台排空队列，
// 可通过 Done() 等待最终完成。
package xpool
