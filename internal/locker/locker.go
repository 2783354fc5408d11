// Package locker serializes the per-owner critical sections of the task
// service: assigning a position and inserting, and rewriting positions.
package locker

import (
	"context"
	"errors"
	"sync"
)

var ErrLockTimeout = errors.New("timed out waiting for owner lock")

type Locker interface {
	// Lock blocks until the owner's lock is held or ctx is done.
	// The returned function releases the lock.
	Lock(ctx context.Context, ownerID string) (unlock func(), err error)
}

type localLocker struct {
	mu    sync.Mutex
	locks map[string]*ownerLock
}

type ownerLock struct {
	ch      chan struct{}
	waiters int
}

// NewLocal returns a Locker that only coordinates goroutines of this process.
func NewLocal() Locker {
	return &localLocker{
		locks: make(map[string]*ownerLock),
	}
}

func (l *localLocker) Lock(ctx context.Context, ownerID string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[ownerID]
	if !ok {
		lock = &ownerLock{ch: make(chan struct{}, 1)}
		l.locks[ownerID] = lock
	}
	lock.waiters++
	l.mu.Unlock()

	select {
	case lock.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(ownerID, lock, false)
		return nil, lockCtxErr(ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(ownerID, lock, true) })
	}, nil
}

func (l *localLocker) release(ownerID string, lock *ownerLock, held bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if held {
		<-lock.ch
	}
	lock.waiters--
	if lock.waiters == 0 {
		delete(l.locks, ownerID)
	}
}
