package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a lock acquisition exceeds the configured wait.
var ErrLockTimeout = errors.New("lock wait timed out")

// PathLock grants exclusive access to logical resources identified by a
// normalized path. Each key has its own waiter queue, so operations on
// different keys proceed independently while operations on the same key are
// handed the lock in FIFO order. The lock is not re-entrant: a goroutine must
// not acquire a key it already holds.
type PathLock struct {
	timeout time.Duration

	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	held    bool
	waiters []chan struct{}
}

// NewPathLock returns a PathLock whose Acquire gives up after timeout.
// A zero timeout means wait forever.
func NewPathLock(timeout time.Duration) *PathLock {
	return &PathLock{
		timeout: timeout,
		locks:   make(map[string]*lockEntry),
	}
}

func normalizeKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Acquire blocks until the caller owns the lock for path, the context is
// cancelled, or the configured timeout elapses.
func (l *PathLock) Acquire(ctx context.Context, path string) error {
	key := normalizeKey(path)

	l.mu.Lock()
	e := l.locks[key]
	if e == nil {
		e = &lockEntry{}
		l.locks[key] = e
	}
	if !e.held {
		e.held = true
		l.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	e.waiters = append(e.waiters, ch)
	l.mu.Unlock()

	var timeoutC <-chan time.Time
	if l.timeout > 0 {
		t := time.NewTimer(l.timeout)
		defer t.Stop()
		timeoutC = t.C
	}

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		l.abandon(key, ch)
		return ctx.Err()
	case <-timeoutC:
		l.abandon(key, ch)
		return fmt.Errorf("acquiring lock for %s: %w", path, ErrLockTimeout)
	}
}

// Release gives up the lock for path, handing it to the oldest waiter if any.
func (l *PathLock) Release(path string) {
	l.release(normalizeKey(path))
}

func (l *PathLock) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.locks[key]
	if e == nil {
		return
	}
	if len(e.waiters) > 0 {
		ch := e.waiters[0]
		e.waiters = e.waiters[1:]
		// Ownership passes directly to the waiter; held stays true.
		close(ch)
		return
	}
	e.held = false
	delete(l.locks, key)
}

// abandon removes ch from the waiter queue after a cancelled or timed-out
// wait. If the channel is gone the releaser already handed us ownership in the
// meantime, so pass the lock straight on.
func (l *PathLock) abandon(key string, ch chan struct{}) {
	l.mu.Lock()
	e := l.locks[key]
	if e != nil {
		for i, w := range e.waiters {
			if w == ch {
				e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
				l.mu.Unlock()
				return
			}
		}
	}
	l.mu.Unlock()
	l.release(key)
}
