package lock

import "sync"

// IDLocker hands out one mutex per record ID. Entries are dropped once no
// goroutine holds or waits on them, so the map only grows with contention.
type IDLocker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewIDLocker() *IDLocker {
	return &IDLocker{locks: make(map[string]*entry)}
}

func (l *IDLocker) Lock(id string) {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &entry{}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
}

func (l *IDLocker) Unlock(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[id]
	if !ok {
		panic("lock: Unlock of unlocked id " + id)
	}
	e.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, id)
	}
}

// WithLock runs f while holding the lock for id.
func (l *IDLocker) WithLock(id string, f func() error) error {
	l.Lock(id)
	defer l.Unlock(id)
	return f()
}

// WithLocks acquires the locks for several ids in a stable order so two
// callers locking the same pair cannot deadlock.
func (l *IDLocker) WithLocks(ids []string, f func() error) error {
	ordered := sortedUnique(ids)
	for _, id := range ordered {
		l.Lock(id)
	}
	defer func() {
		for i := len(ordered) - 1; i >= 0; i-- {
			l.Unlock(ordered[i])
		}
	}()
	return f()
}

func (l *IDLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
