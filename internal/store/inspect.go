// ============================================================================
// KVS Store Inspection Helpers
// ============================================================================
//
// Package: internal/store
// File: inspect.go
// Purpose: Read-only dump helpers backing `kvsctl dump`, exercised the
//          same way the core's other read paths are: TryLock, never
//          block.
//
// ============================================================================

package store

import "github.com/chuliyu-labs/kvstore-core/pkg/kvs"

// DumpKVS returns a snapshot copy of the written layer.
func (s *Store) DumpKVS() (map[string]kvs.Value, error) {
	if !s.mu.TryLock() {
		return nil, kvs.ErrMutexLockFailed
	}
	defer s.mu.Unlock()

	out := make(map[string]kvs.Value, len(s.kvs))
	for k, v := range s.kvs {
		out[k] = v.Clone()
	}
	return out, nil
}

// DumpDefaults returns a snapshot copy of the defaults layer. Defaults
// are immutable after Open, so no lock is required.
func (s *Store) DumpDefaults() map[string]kvs.Value {
	out := make(map[string]kvs.Value, len(s.defaults))
	for k, v := range s.defaults {
		out[k] = v.Clone()
	}
	return out
}
