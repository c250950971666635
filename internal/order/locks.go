package order

import (
	"context"
	"sync"
)

// ScopeLocks hands out one mutual-exclusion lock per scope.
//
// Locks are reference counted and dropped once no goroutine holds or waits
// on them, so the table only grows with the number of scopes in use.
// The zero value is ready to use.
type ScopeLocks struct {
	mu    sync.Mutex
	locks map[string]*scopeLock
}

type scopeLock struct {
	sem  chan struct{}
	refs int
}

// NewScopeLocks returns an empty lock table.
func NewScopeLocks() *ScopeLocks {
	return &ScopeLocks{locks: make(map[string]*scopeLock)}
}

// Lock blocks until scope's lock is acquired or ctx is done.
// The returned unlock function is safe to call more than once.
func (l *ScopeLocks) Lock(ctx context.Context, scope string) (unlock func(), err error) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*scopeLock)
	}
	sl, ok := l.locks[scope]
	if !ok {
		sl = &scopeLock{sem: make(chan struct{}, 1)}
		l.locks[scope] = sl
	}
	sl.refs++
	l.mu.Unlock()

	select {
	case sl.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(scope, sl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-sl.sem
			l.release(scope, sl)
		})
	}, nil
}

// Len returns the number of scopes with a live lock.
func (l *ScopeLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *ScopeLocks) release(scope string, sl *scopeLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sl.refs--
	if sl.refs == 0 {
		delete(l.locks, scope)
	}
}
