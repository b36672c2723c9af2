package queue

import (
	"maps"
	"sync"
)

// Reporter is anything that reports its processing [Progress], such as a
// [GenericQueue] or a type embedding one.
type Reporter interface {
	Progress() Progress
}

// Manager keeps track of a set of [Reporter]s by key, so that their [Progress]
// can be observed as a whole.
type Manager[K comparable, Q Reporter] struct {
	sync.RWMutex

	queues map[K]Q
}

// NewManager returns a pointer to a new [Manager].
func NewManager[K comparable, Q Reporter]() *Manager[K, Q] {
	return &Manager[K, Q]{
		queues: make(map[K]Q),
	}
}

// Register adds a [Reporter] under key, or returns the one already registered
// under that key. The returned bool is true if the given [Reporter] was added.
func (m *Manager[K, Q]) Register(key K, q Q) (Q, bool) {
	m.Lock()
	defer m.Unlock()

	if existing, exists := m.queues[key]; exists {
		return existing, false
	}

	m.queues[key] = q

	return q, true
}

// Unregister removes the [Reporter] registered under key.
func (m *Manager[K, Q]) Unregister(key K) {
	m.Lock()
	defer m.Unlock()

	delete(m.queues, key)
}

// Get returns the [Reporter] registered under key.
func (m *Manager[K, Q]) Get(key K) (Q, bool) {
	m.RLock()
	defer m.RUnlock()

	q, exists := m.queues[key]

	return q, exists
}

// GetQueues returns a copy of the internal map holding all managed queues.
func (m *Manager[K, Q]) GetQueues() map[K]Q {
	m.RLock()
	defer m.RUnlock()

	queues := make(map[K]Q, len(m.queues))
	maps.Copy(queues, m.queues)

	return queues
}

// Len returns the amount of managed queues.
func (m *Manager[K, Q]) Len() int {
	m.RLock()
	defer m.RUnlock()

	return len(m.queues)
}

// Progress returns the merged [Progress] of all managed queues.
func (m *Manager[K, Q]) Progress() Progress {
	m.RLock()
	defer m.RUnlock()

	if len(m.queues) == 0 {
		return Progress{}
	}

	progresses := make([]Progress, 0, len(m.queues))
	for _, q := range m.queues {
		progresses = append(progresses, q.Progress())
	}

	return MergeProgress(progresses...)
}
