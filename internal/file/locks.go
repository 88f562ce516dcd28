package file

import "sync"

// nameLocks hands out one RWMutex per object name. Entries are reference
// counted and dropped when the last holder releases them.
type nameLocks struct {
	mu    sync.Mutex
	locks map[string]*nameLock
}

type nameLock struct {
	sync.RWMutex
	refs int
}

func newNameLocks() *nameLocks {
	return &nameLocks{locks: make(map[string]*nameLock)}
}

func (l *nameLocks) acquire(name string) *nameLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	lk, ok := l.locks[name]
	if !ok {
		lk = &nameLock{}
		l.locks[name] = lk
	}
	lk.refs++
	return lk
}

func (l *nameLocks) release(name string, lk *nameLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, name)
	}
}

// Lock takes the exclusive lock for name and returns its unlock func.
func (l *nameLocks) Lock(name string) func() {
	lk := l.acquire(name)
	lk.Lock()
	return func() {
		lk.Unlock()
		l.release(name, lk)
	}
}

// RLock takes the shared lock for name and returns its unlock func.
func (l *nameLocks) RLock(name string) func() {
	lk := l.acquire(name)
	lk.RLock()
	return func() {
		lk.RUnlock()
		l.release(name, lk)
	}
}

func (l *nameLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
