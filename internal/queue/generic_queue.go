package queue

import (
	"sync"
	"time"
)

const (
	// DecisionSuccess is returned by a processFunc when an item succeeded.
	DecisionSuccess = 1

	// DecisionFailed is returned by a processFunc when an item was processed
	// but resolved with an error.
	DecisionFailed = 0

	// compactThreshold is the amount of consumed head slots after which the
	// backing slice of a [GenericQueue] is compacted.
	compactThreshold = 1024
)

// GenericQueue is an unbounded FIFO queue that can hold any comparable type of
// items. Insertion order is processing order, there is no reordering.
type GenericQueue[T comparable] struct {
	sync.RWMutex
	hasStarted  bool
	hasFinished bool
	startTime   time.Time
	finishTime  time.Time
	head        int
	items       []T
	total       int
	success     int
	failed      int
	inProgress  map[T]struct{}
}

// NewGenericQueue returns a pointer to a new [GenericQueue].
func NewGenericQueue[T comparable]() *GenericQueue[T] {
	return &GenericQueue[T]{
		inProgress: make(map[T]struct{}),
	}
}

// Len returns the amount of items still waiting in the queue.
func (q *GenericQueue[T]) Len() int {
	q.RLock()
	defer q.RUnlock()

	return len(q.items) - q.head
}

// Enqueue adds items to the tail of the queue.
func (q *GenericQueue[T]) Enqueue(items ...T) {
	q.Lock()
	defer q.Unlock()

	if q.hasFinished {
		q.finishTime = time.Time{}
		q.hasFinished = false
	}

	q.items = append(q.items, items...)
	q.total += len(items)
}

// Dequeue returns an item from the head of the queue and advances the head.
func (q *GenericQueue[T]) Dequeue() (T, bool) { //nolint:ireturn
	q.Lock()
	defer q.Unlock()

	var zeroVal T

	if q.head >= len(q.items) {
		if q.head > 0 {
			q.items = q.items[:0]
			q.head = 0
		}

		return zeroVal, false
	}

	if !q.hasStarted {
		q.startTime = time.Now()
		q.hasStarted = true
	}

	item := q.items[q.head]
	q.items[q.head] = zeroVal
	q.head++

	if q.head >= compactThreshold && q.head*2 >= len(q.items) {
		remaining := copy(q.items, q.items[q.head:])
		clear(q.items[remaining:])
		q.items = q.items[:remaining]
		q.head = 0
	}

	return item, true
}

// SetProcessing sets given items as in progress (processing).
func (q *GenericQueue[T]) SetProcessing(items ...T) {
	q.Lock()
	defer q.Unlock()

	for _, item := range items {
		q.inProgress[item] = struct{}{}
	}
}

// SetSuccess sets given in-progress queue items as successfully processed. The
// items are removed from the in-progress map in the process.
func (q *GenericQueue[T]) SetSuccess(items ...T) {
	q.Lock()
	defer q.Unlock()

	for _, item := range items {
		delete(q.inProgress, item)
		q.success++
	}
	q.checkFinished()
}

// SetFailed sets given in-progress queue items as processed with failure. The
// items are removed from the in-progress map in the process.
func (q *GenericQueue[T]) SetFailed(items ...T) {
	q.Lock()
	defer q.Unlock()

	for _, item := range items {
		delete(q.inProgress, item)
		q.failed++
	}
	q.checkFinished()
}

func (q *GenericQueue[T]) checkFinished() {
	if !q.hasFinished && q.success+q.failed >= q.total {
		q.finishTime = time.Now()
		q.hasFinished = true
	}
}

// Progress returns the [Progress] for the [GenericQueue].
func (q *GenericQueue[T]) Progress() Progress {
	q.RLock()
	defer q.RUnlock()

	return calculateProgress(progressInput{
		hasStarted:  q.hasStarted,
		hasFinished: q.hasFinished,
		startTime:   q.startTime,
		finishTime:  q.finishTime,
		total:       q.total,
		success:     q.success,
		failed:      q.failed,
		inProgress:  len(q.inProgress),
	})
}

// process marks the item as in progress, runs processFunc on it and records
// the returned decision.
func (q *GenericQueue[T]) process(item T, processFunc func(T) int) {
	q.SetProcessing(item)

	switch processFunc(item) {
	case DecisionSuccess:
		q.SetSuccess(item)

	default:
		q.SetFailed(item)
	}
}
