package queue

import "sync"

// SerialQueue is a [GenericQueue] that drains itself with at most one worker.
// Scheduling an item onto an idle queue starts a drain loop, which processes
// items one by one and in insertion order, awaiting each processFunc before
// dequeueing the next item. When the queue runs empty, the worker exits and
// the queue returns to idle until the next item is scheduled.
type SerialQueue[T comparable] struct {
	*GenericQueue[T]

	mu          sync.Mutex
	idle        *sync.Cond
	running     bool
	processFunc func(T) int
}

// NewSerialQueue returns a pointer to a new [SerialQueue] that processes its
// items with the given processFunc.
//
// Possible decisions to be returned: [DecisionSuccess], [DecisionFailed].
func NewSerialQueue[T comparable](processFunc func(T) int) *SerialQueue[T] {
	q := &SerialQueue[T]{
		GenericQueue: NewGenericQueue[T](),
		processFunc:  processFunc,
	}
	q.idle = sync.NewCond(&q.mu)

	return q
}

// Schedule appends an item to the queue, starting a drain loop in case the
// queue was idle. It never blocks on item processing and is safe to call from
// within the processFunc itself.
func (q *SerialQueue[T]) Schedule(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.Enqueue(item)

	if !q.running {
		q.running = true
		go q.drain()
	}
}

// IsIdle returns whether no drain loop is currently running.
func (q *SerialQueue[T]) IsIdle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return !q.running
}

// Wait blocks until the queue has been drained and returned to idle.
func (q *SerialQueue[T]) Wait() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.running {
		q.idle.Wait()
	}
}

func (q *SerialQueue[T]) drain() {
	for {
		item, ok := q.next()
		if !ok {
			return
		}

		q.process(item, q.processFunc)
	}
}

// next dequeues the next item or, if there is none, flips the queue back to
// idle. Both happen under the same lock as [SerialQueue.Schedule], so that no
// scheduled item can be left behind without a worker.
func (q *SerialQueue[T]) next() (T, bool) { //nolint:ireturn
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.Dequeue()
	if !ok {
		q.running = false
		q.idle.Broadcast()
	}

	return item, ok
}
