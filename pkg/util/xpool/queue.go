package xpool

import (
	"sync"
	"time"

	"github.com/eapache/queue"
)

// task 是队列中的工作单元：参数已在提交时捕获，执行结果由实现写入配对的 Future。
// run 返回的 error 仅用于统计与日志，调用方通过 Future 获取结果。
type task interface {
	id() string
	queuedAt() time.Time
	run() error
}

// taskQueue 把待执行任务、accepting 标记与保护它们的锁和条件变量绑在一起。
// items 与 accepting 只能在持有 mu 时访问。
type taskQueue struct {
	mu        sync.Mutex
	cond      *sync.Cond
	items     *queue.Queue
	accepting bool
	enqueued  uint64
}

func newTaskQueue() *taskQueue {
	q := &taskQueue{
		items:     queue.New(),
		accepting: true,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push 把任务追加到队尾并唤醒一个等待中的 worker。
// 关闭后返回 ErrPoolClosed，不入队。
func (q *taskQueue) push(t task) error {
	q.mu.Lock()
	if !q.accepting {
		q.mu.Unlock()
		return ErrPoolClosed
	}
	q.items.Add(t)
	q.enqueued++
	q.mu.Unlock()

	q.cond.Signal()
	return nil
}

// take 阻塞直到队列非空或已关闭。
// 仅当已关闭且队列为空时返回 ok=false，worker 应退出；否则取出队头。
func (q *taskQueue) take() (t task, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.accepting && q.items.Length() == 0 {
		q.cond.Wait()
	}
	if q.items.Length() == 0 {
		return nil, false
	}
	return q.items.Remove().(task), true
}

// close 停止接收新任务并唤醒所有等待中的 worker。
// 只有第一次调用返回 true。
func (q *taskQueue) close() bool {
	q.mu.Lock()
	first := q.accepting
	q.accepting = false
	q.mu.Unlock()

	q.cond.Broadcast()
	return first
}

func (q *taskQueue) length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

func (q *taskQueue) submitted() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enqueued
}
