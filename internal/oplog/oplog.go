// Package oplog keeps a bounded append-only journal of mutating operations.
package oplog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/partystat/internal/storage"
)

// MaxEntries is the number of journal entries retained; appending beyond the
// cap drops the oldest entries first.
const MaxEntries = 1000

// Entry is one immutable journal record.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Operation string `json:"operation"`
	User      string `json:"user"`
	Data      any    `json:"data"`
	ID        string `json:"id"`
}

// Log appends operation records through the record store at its log path.
type Log struct {
	store *storage.Store

	// Serializes the read-modify-write append cycle; the path lock alone
	// guards each IO step but not the cycle as a whole.
	mu sync.Mutex
}

func New(store *storage.Store) *Log {
	return &Log{store: store}
}

// Append records an operation. An empty actor is stored as "anonymous".
func (l *Log) Append(ctx context.Context, operation, actor string, data any) error {
	if actor == "" {
		actor = "anonymous"
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	path := l.store.LogPath()
	var entries []Entry
	if _, err := l.store.Read(ctx, path, &entries); err != nil {
		return err
	}

	entries = append(entries, Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Operation: operation,
		User:      actor,
		Data:      data,
		ID:        uuid.NewString(),
	})
	if len(entries) > MaxEntries {
		entries = entries[len(entries)-MaxEntries:]
	}

	return l.store.Write(ctx, path, entries)
}

// Recent returns up to n journal entries, newest first.
func (l *Log) Recent(ctx context.Context, n int) ([]Entry, error) {
	var entries []Entry
	if _, err := l.store.Read(ctx, l.store.LogPath(), &entries); err != nil {
		return nil, err
	}

	out := make([]Entry, 0, n)
	for i := len(entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}
