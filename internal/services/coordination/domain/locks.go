package domain

import "sync"

// instanceLocks serializes mutations per instance. The task set of one
// instance is the unit of contention: transitions, propagation, and the
// completion checks for that instance run one at a time, while different
// instances proceed independently.
type instanceLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newInstanceLocks() *instanceLocks {
	return &instanceLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for instanceID and returns its unlock func.
func (l *instanceLocks) acquire(instanceID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[instanceID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[instanceID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
