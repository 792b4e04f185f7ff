package relations

import "sync"

// rowLocks hands out one mutex per row id. Entries are dropped once no
// goroutine holds or waits on them.
type rowLocks struct {
	mu    sync.Mutex
	locks map[string]*rowLock
}

type rowLock struct {
	mu   sync.Mutex
	refs int
}

func newRowLocks() *rowLocks {
	return &rowLocks{locks: make(map[string]*rowLock)}
}

// lock blocks until rowID is free and returns the matching unlock
func (l *rowLocks) lock(rowID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[rowID]
	if !ok {
		entry = &rowLock{}
		l.locks[rowID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, rowID)
		}
		l.mu.Unlock()
	}
}

func (l *rowLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
