package xpool

// Stats 是 pool 计数器的快照。
//
// 各字段分别读取，并发运行时彼此之间不保证一致；
// Close 返回后的快照是精确的。
type Stats struct {
	// Submitted 成功入队的任务总数。
	Submitted uint64
	// Completed 执行结束的任务总数（含失败）。
	Completed uint64
	// Failed 返回 error 或 panic 的任务数。
	Failed uint64
	// Panicked 其中 panic 的任务数。
	Panicked uint64
	// Running 正在执行的任务数。
	Running int
	// Pending 队列中等待执行的任务数。
	Pending int
}

// Stats 返回当前计数器快照。
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.queue.submitted(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Panicked:  p.panicked.Load(),
		Running:   int(p.running.Load()),
		Pending:   p.queue.length(),
	}
}
