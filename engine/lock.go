package engine

import (
	"context"
	"sync"
)

type lockEntry struct {
	sem  chan struct{}
	refs int
}

// keyedLock serializes holders of the same key.
// Waiters are granted the lock in arrival order.
type keyedLock struct {
	mu sync.Mutex
	m  map[string]*lockEntry
}

func newKeyedLock() *keyedLock {
	return &keyedLock{m: make(map[string]*lockEntry)}
}

// lock acquires the lock for key and returns its release function.
// An error is returned only if ctx is done before the lock is acquired.
func (l *keyedLock) lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.m[key]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		l.m[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(key, e)
		})
	}, nil
}

func (l *keyedLock) release(key string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs < 1 {
		delete(l.m, key)
	}
}

// len returns the number of keys held or waited for.
func (l *keyedLock) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
