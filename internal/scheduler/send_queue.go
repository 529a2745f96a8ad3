package scheduler

import (
	"container/heap"
	"sync"
	"time"
)

// SendQueue is a thread-safe, bounded-in-spirit priority queue of SendTask
// values with queue.Queue-style task_done()/join() bookkeeping so callers
// can wait for every dequeued task to be marked complete (Host.JoinQueue
// relies on this to know the device has drained its outbound work).
//
// The blocking shape (condition variable guarding a heap, rather than a
// buffered channel) generalizes a bounded FIFO of byte slices into a
// min-heap of SendTask ordered by (priority, sequence).
type SendQueue struct {
	mu         sync.Mutex
	notEmpty   *sync.Cond
	allDone    *sync.Cond
	items      taskHeap
	unfinished int
}

// NewSendQueue constructs an empty SendQueue.
func NewSendQueue() *SendQueue {
	q := &SendQueue{}
	q.notEmpty = sync.NewCond(&q.mu)
	q.allDone = sync.NewCond(&q.mu)
	return q
}

// Put adds a task to the queue and wakes one waiting consumer.
func (q *SendQueue) Put(task SendTask) {
	q.mu.Lock()
	heap.Push(&q.items, task)
	q.unfinished++
	q.mu.Unlock()
	q.notEmpty.Signal()
}

// Get blocks until a task is available or timeout elapses, returning
// (task, true) on success or (zero, false) on timeout. A timeout <= 0
// returns immediately if the queue is empty.
func (q *SendQueue) Get(timeout time.Duration) (SendTask, bool) {
	deadline := time.Now().Add(timeout)

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return SendTask{}, false
		}
		waitOnCond(q.notEmpty, remaining)
	}

	task := heap.Pop(&q.items).(SendTask)
	return task, true
}

// TaskDone marks one previously dequeued task complete, for Join.
func (q *SendQueue) TaskDone() {
	q.mu.Lock()
	if q.unfinished > 0 {
		q.unfinished--
	}
	done := q.unfinished == 0
	q.mu.Unlock()
	if done {
		q.allDone.Broadcast()
	}
}

// Empty reports whether the queue currently holds no tasks.
func (q *SendQueue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Purge drops every pending task without sending it, marking each one done
// so a concurrent Join is not left blocked forever.
func (q *SendQueue) Purge() {
	q.mu.Lock()
	dropped := len(q.items)
	q.items = q.items[:0]
	if dropped > 0 {
		q.unfinished -= dropped
		if q.unfinished < 0 {
			q.unfinished = 0
		}
	}
	done := q.unfinished == 0
	q.mu.Unlock()
	if done {
		q.allDone.Broadcast()
	}
}

// Join blocks until every task that has been Put has also been marked
// TaskDone (or purged).
func (q *SendQueue) Join() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.unfinished > 0 {
		q.allDone.Wait()
	}
}

// waitOnCond waits on cond for at most d by racing it against a timer that
// wakes every other waiter too; sync.Cond has no native timed wait.
func waitOnCond(cond *sync.Cond, d time.Duration) {
	timer := time.AfterFunc(d, func() {
		cond.Broadcast()
	})
	defer timer.Stop()
	cond.Wait()
}

// taskHeap implements container/heap.Interface over SendTask values.
type taskHeap []SendTask

func (h taskHeap) Len() int            { return len(h) }
func (h taskHeap) Less(i, j int) bool  { return h[i].Less(h[j]) }
func (h taskHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x interface{}) { *h = append(*h, x.(SendTask)) }
func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
