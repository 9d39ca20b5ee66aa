package services

import "sync"

// filenameLocks serializes bundles sharing a filename within one process.
type filenameLocks struct {
	mu    sync.Mutex
	locks map[string]*filenameLock
}

type filenameLock struct {
	mu   sync.Mutex
	refs int
}

func newFilenameLocks() *filenameLocks {
	return &filenameLocks{locks: make(map[string]*filenameLock)}
}

// Lock blocks until name is free and returns the matching unlock func.
func (l *filenameLocks) Lock(name string) func() {
	l.mu.Lock()
	lk, ok := l.locks[name]
	if !ok {
		lk = &filenameLock{}
		l.locks[name] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, name)
		}
		l.mu.Unlock()
	}
}
