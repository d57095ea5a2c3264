// ============================================================================
// KVS Store Lifecycle
// ============================================================================
//
// Package: internal/store
// File: lifecycle.go
// Purpose: Flush-on-drop without destructors. Close() is the primary
//          mechanism; the finalizer registered in Open() is a safety net,
//          not a correctness guarantee.
//
// ============================================================================

package store

import (
	"log/slog"
	"runtime"
)

var log = slog.Default()

// Close flushes the store if flushOnDrop is set, then disarms the
// finalizer. Close itself always returns nil once the flush has been
// attempted, discarding the flush result; a failure is
// only surfaced as a warn-level log line, not as an error to the caller.
func (s *Store) Close() error {
	runtime.SetFinalizer(s, nil)

	if s.flushOnDrop.Load() {
		if err := s.Flush(); err != nil {
			log.Warn("flush on close failed", "prefix", s.prefix, "error", err)
		}
	}
	return nil
}
