package rotation

import "sync"

// churchLocks serializes generations per church. Entries are reference
// counted and dropped once no caller holds or waits on them.
type churchLocks struct {
	mu    sync.Mutex
	locks map[string]*churchLock
}

type churchLock struct {
	mu   sync.Mutex
	refs int
}

func newChurchLocks() *churchLocks {
	return &churchLocks{locks: make(map[string]*churchLock)}
}

// lock blocks until churchID is free and returns the matching unlock.
func (l *churchLocks) lock(churchID string) func() {
	l.mu.Lock()
	cl, ok := l.locks[churchID]
	if !ok {
		cl = &churchLock{}
		l.locks[churchID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()

	return func() {
		cl.mu.Unlock()

		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.locks, churchID)
		}
		l.mu.Unlock()
	}
}
