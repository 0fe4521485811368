// Package storage implements the path-locked JSON document store backing the
// statistics service. Every document read decodes a fresh value and every
// write fully replaces the previous content; per-path locking is the only
// concurrency control. The lock table is in-process, so running more than one
// server instance against the same data directory is unsupported.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrBadUnitName is returned for unit names that cannot serve as directory keys.
var ErrBadUnitName = errors.New("invalid unit name")

// StorageError wraps an IO or decode failure on a stored document. A missing
// document is not a StorageError; reads report absence separately.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Store is the sole IO gateway for the service's documents. All paths below
// the data directory are fixed: units.json, summary/<unit>.json,
// details/<unit>/type<N>.json and logs/operations.json.
type Store struct {
	root string
	lock *PathLock
}

// Open prepares the data directory layout and returns a Store whose lock
// waits give up after lockTimeout (zero = wait forever).
func Open(dataDir string, lockTimeout time.Duration) (*Store, error) {
	s := &Store{root: dataDir, lock: NewPathLock(lockTimeout)}
	for _, dir := range []string{dataDir, s.summaryDir(), s.detailsDir(), s.logsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	return s, nil
}

// Root returns the data directory the store operates on.
func (s *Store) Root() string { return s.root }

func (s *Store) summaryDir() string { return filepath.Join(s.root, "summary") }
func (s *Store) detailsDir() string { return filepath.Join(s.root, "details") }
func (s *Store) logsDir() string    { return filepath.Join(s.root, "logs") }

// UnitsPath is the location of the unit list document.
func (s *Store) UnitsPath() string { return filepath.Join(s.root, "units.json") }

// LogPath is the location of the operation log document.
func (s *Store) LogPath() string { return filepath.Join(s.logsDir(), "operations.json") }

// SummaryPath is the location of one unit's summary document.
func (s *Store) SummaryPath(unit string) string {
	return filepath.Join(s.summaryDir(), unit+".json")
}

// DetailPath is the location of one (unit, category) detail document.
func (s *Store) DetailPath(unit string, category int) string {
	return filepath.Join(s.detailsDir(), unit, "type"+strconv.Itoa(category)+".json")
}

// ValidateUnitName rejects names that would escape the details directory or
// collide with the path layout. Unit names double as directory keys.
func ValidateUnitName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrBadUnitName)
	}
	if strings.ContainsAny(name, "/\\\x00") || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrBadUnitName, name)
	}
	return nil
}

// Read decodes the JSON document at path into v. It reports false with v
// untouched when the document does not exist, and a *StorageError on any IO
// or decode failure. The path lock is held for the duration of the read and
// released unconditionally.
func (s *Store) Read(ctx context.Context, path string, v any) (bool, error) {
	if err := s.lock.Acquire(ctx, path); err != nil {
		return false, &StorageError{Op: "read", Path: path, Err: err}
	}
	defer s.lock.Release(path)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &StorageError{Op: "read", Path: path, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, &StorageError{Op: "decode", Path: path, Err: err}
	}
	return true, nil
}

// Write serializes v as JSON and fully replaces the document at path. The
// parent directory is created if needed and the content lands via a temporary
// file and rename, so readers never observe a partial document.
func (s *Store) Write(ctx context.Context, path string, v any) error {
	if err := s.lock.Acquire(ctx, path); err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	defer s.lock.Release(path)

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &StorageError{Op: "encode", Path: path, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".write-*")
	if err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// ListSummaryUnits returns the units that currently have a summary document,
// sorted by name.
func (s *Store) ListSummaryUnits() ([]string, error) {
	entries, err := os.ReadDir(s.summaryDir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "list", Path: s.summaryDir(), Err: err}
	}
	var units []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		units = append(units, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(units)
	return units, nil
}

// ListDetailCategories returns the category codes that have a stored detail
// document for unit, in ascending order.
func (s *Store) ListDetailCategories(unit string) ([]int, error) {
	dir := filepath.Join(s.detailsDir(), unit)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "list", Path: dir, Err: err}
	}
	var categories []int
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "type") || !strings.HasSuffix(name, ".json") {
			continue
		}
		c, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "type"), ".json"))
		if err != nil {
			continue
		}
		categories = append(categories, c)
	}
	sort.Ints(categories)
	return categories, nil
}

// DeleteUnit removes one unit's summary document and its entire detail
// directory. Missing data is not an error.
func (s *Store) DeleteUnit(ctx context.Context, unit string) error {
	if err := ValidateUnitName(unit); err != nil {
		return err
	}
	summaryPath := s.SummaryPath(unit)
	if err := s.lock.Acquire(ctx, summaryPath); err != nil {
		return &StorageError{Op: "delete", Path: summaryPath, Err: err}
	}
	err := os.Remove(summaryPath)
	s.lock.Release(summaryPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return &StorageError{Op: "delete", Path: summaryPath, Err: err}
	}
	detailDir := filepath.Join(s.detailsDir(), unit)
	if err := os.RemoveAll(detailDir); err != nil {
		return &StorageError{Op: "delete", Path: detailDir, Err: err}
	}
	return nil
}

// Stage creates a throwaway Store rooted in a sibling staging directory, used
// by report import to build the replacement state before swapping it live.
func (s *Store) Stage() (*Store, error) {
	stageRoot, err := os.MkdirTemp(s.root, ".import-stage-*")
	if err != nil {
		return nil, &StorageError{Op: "stage", Path: s.root, Err: err}
	}
	return Open(stageRoot, s.lock.timeout)
}

// SwapStaged replaces the live summary and details trees with the staged
// store's, then discards the staging directory and whatever it displaced.
// The swap is two renames; a crash between them can leave mismatched trees,
// but readers no longer observe the fully empty store the old
// purge-then-repopulate sequence exposed.
func (s *Store) SwapStaged(staged *Store) error {
	old, err := os.MkdirTemp(s.root, ".import-old-*")
	if err != nil {
		return &StorageError{Op: "swap", Path: s.root, Err: err}
	}
	swaps := []struct{ live, stage, name string }{
		{s.detailsDir(), staged.detailsDir(), "details"},
		{s.summaryDir(), staged.summaryDir(), "summary"},
	}
	for _, sw := range swaps {
		if err := os.Rename(sw.live, filepath.Join(old, sw.name)); err != nil {
			return &StorageError{Op: "swap", Path: sw.live, Err: err}
		}
		if err := os.Rename(sw.stage, sw.live); err != nil {
			return &StorageError{Op: "swap", Path: sw.stage, Err: err}
		}
	}
	os.RemoveAll(old)
	os.RemoveAll(staged.root)
	return nil
}
