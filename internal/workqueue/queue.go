// Package workqueue provides the shared task pool the occlusion pipeline
// submits its work to. The pool is intentionally minimal: post one task,
// post many, and let any goroutine cooperatively run queued work.
package workqueue

import "sync"

// Task is a unit of work. Tasks may post further tasks while running; the
// occlusion pipeline's phase hand-off depends on that.
type Task interface {
	Run()
}

// Queue is a mutex-guarded task list drained by a fixed set of worker
// goroutines. With zero workers all tasks run on whichever goroutine calls
// TryRunTask, which gives deterministic single-threaded execution.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []Task
	closed bool
	wg     sync.WaitGroup
}

// New starts a queue with the given number of worker goroutines.
func New(workers int) *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Post queues a single task.
func (q *Queue) Post(t Task) {
	q.mu.Lock()
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()
	q.cond.Signal()
}

// PostAll queues a batch of tasks. The slice is copied; the caller may reuse
// it immediately.
func (q *Queue) PostAll(tasks []Task) {
	q.mu.Lock()
	q.tasks = append(q.tasks, tasks...)
	q.mu.Unlock()
	q.cond.Broadcast()
}

// TryRunTask runs one queued task on the calling goroutine. Returns false
// without blocking when no task is queued, so callers can poll while
// waiting for completion counters.
func (q *Queue) TryRunTask() bool {
	q.mu.Lock()
	task, ok := q.pop()
	q.mu.Unlock()
	if !ok {
		return false
	}
	task.Run()
	return true
}

// Close stops the workers after the queue drains and waits for them to
// exit. Pending tasks still run.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.closed {
			q.cond.Wait()
		}
		task, ok := q.pop()
		q.mu.Unlock()
		if !ok {
			return
		}
		task.Run()
	}
}

// pop removes and returns the most recently queued task. Callers hold mu.
func (q *Queue) pop() (Task, bool) {
	n := len(q.tasks)
	if n == 0 {
		return nil, false
	}
	task := q.tasks[n-1]
	q.tasks[n-1] = nil
	q.tasks = q.tasks[:n-1]
	return task, true
}
