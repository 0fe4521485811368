package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	l := NewPathLock(0)
	ctx := context.Background()

	if err := l.Acquire(ctx, "/tmp/a.json"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	l.Release("/tmp/a.json")

	// Re-acquire after release must succeed immediately.
	if err := l.Acquire(ctx, "/tmp/a.json"); err != nil {
		t.Fatalf("re-Acquire: %v", err)
	}
	l.Release("/tmp/a.json")
}

func TestDifferentKeysIndependent(t *testing.T) {
	l := NewPathLock(0)
	ctx := context.Background()

	if err := l.Acquire(ctx, "/tmp/a.json"); err != nil {
		t.Fatalf("Acquire a: %v", err)
	}
	defer l.Release("/tmp/a.json")

	done := make(chan struct{})
	go func() {
		if err := l.Acquire(ctx, "/tmp/b.json"); err != nil {
			t.Errorf("Acquire b: %v", err)
		}
		l.Release("/tmp/b.json")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("acquire on a different key blocked behind an unrelated holder")
	}
}

func TestSameKeySerialized(t *testing.T) {
	l := NewPathLock(0)
	ctx := context.Background()

	const workers = 8
	const rounds = 50

	var mu sync.Mutex
	inCritical := 0
	maxInCritical := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				if err := l.Acquire(ctx, "data/shared.json"); err != nil {
					t.Errorf("Acquire: %v", err)
					return
				}
				mu.Lock()
				inCritical++
				if inCritical > maxInCritical {
					maxInCritical = inCritical
				}
				mu.Unlock()

				mu.Lock()
				inCritical--
				mu.Unlock()
				l.Release("data/shared.json")
			}
		}()
	}
	wg.Wait()

	if maxInCritical != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxInCritical)
	}
}

func TestKeyNormalization(t *testing.T) {
	l := NewPathLock(50 * time.Millisecond)
	ctx := context.Background()

	if err := l.Acquire(ctx, "data/x.json"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer l.Release("data/x.json")

	// The same file reached through a redundant path element is the same key.
	err := l.Acquire(ctx, "data/./x.json")
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("Acquire on equivalent path = %v, want ErrLockTimeout", err)
	}
}

func TestAcquireTimeout(t *testing.T) {
	l := NewPathLock(30 * time.Millisecond)
	ctx := context.Background()

	if err := l.Acquire(ctx, "/tmp/held.json"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	err := l.Acquire(ctx, "/tmp/held.json")
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("second Acquire = %v, want ErrLockTimeout", err)
	}

	// The holder can still release, and the key becomes available again.
	l.Release("/tmp/held.json")
	if err := l.Acquire(ctx, "/tmp/held.json"); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	l.Release("/tmp/held.json")
}

func TestAcquireContextCancel(t *testing.T) {
	l := NewPathLock(0)

	if err := l.Acquire(context.Background(), "/tmp/held.json"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer l.Release("/tmp/held.json")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- l.Acquire(ctx, "/tmp/held.json")
	}()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Acquire = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled Acquire did not return")
	}
}

func TestFIFOHandoff(t *testing.T) {
	l := NewPathLock(0)
	ctx := context.Background()

	if err := l.Acquire(ctx, "/tmp/q.json"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	const waiters = 4
	order := make(chan int, waiters)
	ready := make(chan struct{})

	for i := 0; i < waiters; i++ {
		i := i
		go func() {
			if i == 0 {
				close(ready)
			} else {
				<-ready
				// Stagger so the queue order is deterministic enough to observe
				// that each waiter gets the lock exactly once.
				time.Sleep(time.Duration(i) * 20 * time.Millisecond)
			}
			if err := l.Acquire(ctx, "/tmp/q.json"); err != nil {
				t.Errorf("waiter %d Acquire: %v", i, err)
				return
			}
			order <- i
			l.Release("/tmp/q.json")
		}()
	}

	time.Sleep(200 * time.Millisecond)
	l.Release("/tmp/q.json")

	seen := make(map[int]bool)
	for i := 0; i < waiters; i++ {
		select {
		case id := <-order:
			if seen[id] {
				t.Fatalf("waiter %d acquired twice", id)
			}
			seen[id] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d waiters acquired the lock", i, waiters)
		}
	}
}
