// ============================================================================
// KVS Store Core
// ============================================================================
//
// Package: internal/store
// File: store.go
// Purpose: In-memory key-value map with a read-only defaults overlay,
//          fail-fast locking, and flush-to-disk via internal/persistence
//          and internal/snapshot.
//
// Lock discipline: mu protects kvs only. Every operation that
// touches kvs acquires mu with TryLock; contention surfaces immediately as
// MutexLockFailed rather than blocking. defaults, prefix, and flushOnDrop
// are immutable or atomic and need no lock.
//
// ============================================================================

package store

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chuliyu-labs/kvstore-core/internal/fsio"
	"github.com/chuliyu-labs/kvstore-core/internal/metrics"
	"github.com/chuliyu-labs/kvstore-core/internal/persistence"
	"github.com/chuliyu-labs/kvstore-core/internal/snapshot"
	"github.com/chuliyu-labs/kvstore-core/pkg/kvs"
)

// Store is the persistent key-value core.
type Store struct {
	mu  sync.Mutex
	kvs map[string]kvs.Value

	defaults map[string]kvs.Value
	prefix   string

	flushOnDrop atomic.Bool

	fsImpl  fsio.FS
	snap    *snapshot.Manager
	metrics *metrics.Collector
}

func (s *Store) fs() fsio.FS { return s.fsImpl }

// AttachMetrics wires a Prometheus collector into the store. It is
// optional: a Store with no collector attached behaves identically, just
// without metric emission.
func (s *Store) AttachMetrics(c *metrics.Collector) {
	s.metrics = c
}

func (s *Store) observe(fn func(*metrics.Collector)) {
	if s.metrics != nil {
		fn(s.metrics)
	}
}

// Reset clears every written entry; defaults are untouched.
func (s *Store) Reset() error {
	if !s.mu.TryLock() {
		return kvs.ErrMutexLockFailed
	}
	defer s.mu.Unlock()

	s.kvs = make(map[string]kvs.Value)
	return nil
}

// AllKeys returns a snapshot of the written keys (not defaults).
func (s *Store) AllKeys() ([]string, error) {
	if !s.mu.TryLock() {
		return nil, kvs.ErrMutexLockFailed
	}
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.kvs))
	for k := range s.kvs {
		keys = append(keys, k)
	}
	return keys, nil
}

// Contains reports whether key has a written entry. Defaults do not count.
func (s *Store) Contains(key string) (bool, error) {
	if !s.mu.TryLock() {
		return false, kvs.ErrMutexLockFailed
	}
	defer s.mu.Unlock()

	_, ok := s.kvs[key]
	return ok, nil
}

// Get returns the written value for key if present, otherwise the
// default if one exists.
func (s *Store) Get(key string) (kvs.Value, error) {
	if !s.mu.TryLock() {
		return kvs.Value{}, kvs.ErrMutexLockFailed
	}
	defer s.mu.Unlock()

	s.observe(func(c *metrics.Collector) { c.ObserveGet() })

	if v, ok := s.kvs[key]; ok {
		return v, nil
	}
	if v, ok := s.defaults[key]; ok {
		return v, nil
	}
	return kvs.Value{}, kvs.ErrKeyNotFound
}

// GetDefault returns key's default value. Defaults never require the
// store lock: they are immutable after Open.
func (s *Store) GetDefault(key string) (kvs.Value, error) {
	v, ok := s.defaults[key]
	if !ok {
		return kvs.Value{}, kvs.ErrKeyNotFound
	}
	return v, nil
}

// HasDefault reports whether key has a default value.
func (s *Store) HasDefault(key string) bool {
	_, ok := s.defaults[key]
	return ok
}

// ResetKey removes key's written entry, provided a default exists for it.
// If key has no default, this is an error even if a written entry is
// present — the entry is left untouched in that case.
func (s *Store) ResetKey(key string) error {
	if !s.HasDefault(key) {
		return kvs.ErrKeyDefaultNotFound
	}

	if !s.mu.TryLock() {
		return kvs.ErrMutexLockFailed
	}
	defer s.mu.Unlock()

	delete(s.kvs, key)
	return nil
}

// Set inserts or replaces key's written entry.
func (s *Store) Set(key string, value kvs.Value) error {
	if !s.mu.TryLock() {
		return kvs.ErrMutexLockFailed
	}
	defer s.mu.Unlock()

	s.kvs[key] = value.Clone()
	s.observe(func(c *metrics.Collector) { c.ObserveSet() })
	return nil
}

// Remove erases key's written entry. Removing an absent key is an error;
// no default fallback applies.
func (s *Store) Remove(key string) error {
	if !s.mu.TryLock() {
		return kvs.ErrMutexLockFailed
	}
	defer s.mu.Unlock()

	if _, ok := s.kvs[key]; !ok {
		return kvs.ErrKeyNotFound
	}
	delete(s.kvs, key)
	s.observe(func(c *metrics.Collector) { c.ObserveRemove() })
	return nil
}

// Flush persists kvs to slot 0, rotating older snapshots first. Sequence:
// encode under lock, release, serialize, rotate
// (re-acquires the lock internally), write the new pair. A failure at any
// step leaves the in-memory state untouched; on-disk rotation that
// already happened before a later failure is not rolled back.
func (s *Store) Flush() (err error) {
	defer func() {
		if err != nil {
			s.observe(func(c *metrics.Collector) { c.ObserveFlushFailure() })
		} else {
			s.observe(func(c *metrics.Collector) { c.ObserveFlush() })
		}
	}()

	if !s.mu.TryLock() {
		return kvs.ErrMutexLockFailed
	}
	captured := make(map[string]kvs.Value, len(s.kvs))
	for k, v := range s.kvs {
		captured[k] = v.Clone()
	}
	s.mu.Unlock()

	raw, encErr := persistence.EncodeValues(captured)
	if encErr != nil {
		return encErr
	}

	if rotErr := s.rotate(); rotErr != nil {
		return rotErr
	}

	if err := persistence.WritePair(s.fs(), s.snap.SlotPrefix(0), raw); err != nil {
		return err
	}
	return nil
}

func (s *Store) rotate() error {
	if !s.mu.TryLock() {
		return kvs.ErrMutexLockFailed
	}
	defer s.mu.Unlock()

	if err := s.snap.Rotate(); err != nil {
		return err
	}
	s.observe(func(c *metrics.Collector) { c.ObserveSnapshotRotation() })
	return nil
}

// SnapshotCount returns the number of retained snapshot slots.
func (s *Store) SnapshotCount() (int, error) {
	count, err := s.snap.Count()
	if err != nil {
		return 0, err
	}
	s.observe(func(c *metrics.Collector) { c.SetSnapshotCount(count) })
	return count, nil
}

// SnapshotMaxCount returns the MaxSnapshots constant.
func (s *Store) SnapshotMaxCount() int {
	return snapshot.MaxSnapshots
}

// SnapshotRestore replaces kvs with the contents of snapshot id
// (1..=SnapshotCount()); defaults are unaffected.
func (s *Store) SnapshotRestore(id int) error {
	count, err := s.SnapshotCount()
	if err != nil {
		return err
	}
	if id < 1 || id > count {
		return kvs.ErrInvalidSnapshotID
	}

	pair, err := persistence.ReadPair(s.fs(), s.snap.SlotPrefix(id), persistence.Required)
	if err != nil {
		if kvs.KindOf(err) == kvs.KindValidationFailed {
			s.observe(func(c *metrics.Collector) { c.ObserveChecksumFailure() })
		}
		return err
	}

	if !s.mu.TryLock() {
		return kvs.ErrMutexLockFailed
	}
	defer s.mu.Unlock()
	s.kvs = pair.Values
	return nil
}

// KVSFilename returns the path to P_id.json if it exists.
func (s *Store) KVSFilename(id int) (string, error) {
	return s.checkedFilename(s.snap.SlotPrefix(id) + ".json")
}

// HashFilename returns the path to P_id.hash if it exists.
func (s *Store) HashFilename(id int) (string, error) {
	return s.checkedFilename(s.snap.SlotPrefix(id) + ".hash")
}

func (s *Store) checkedFilename(path string) (string, error) {
	ok, err := s.fs().Exists(path)
	if err != nil {
		return "", kvs.WrapPhysicalStorageFailure(fmt.Sprintf("stat %s", path), err)
	}
	if !ok {
		return "", kvs.ErrFileNotFound
	}
	return path, nil
}

// SetFlushOnDrop updates the atomic flush-on-close flag.
func (s *Store) SetFlushOnDrop(flag bool) {
	s.flushOnDrop.Store(flag)
}
