// ============================================================================
// KVS Open/Builder
// ============================================================================
//
// Package: internal/store
// File: open.go
// Purpose: Open(instanceID, needDefaults, needKVS, directory) — construct
//          a Store by loading its defaults and live slot.
//
// ============================================================================

package store

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/chuliyu-labs/kvstore-core/internal/fsio"
	"github.com/chuliyu-labs/kvstore-core/internal/persistence"
	"github.com/chuliyu-labs/kvstore-core/internal/snapshot"
)

// Policy controls how a missing required file is treated when Open loads
// a slot. It is an alias of persistence.Policy so callers of this package
// never need to import internal/persistence directly.
type Policy = persistence.Policy

const (
	Required = persistence.Required
	Optional = persistence.Optional
)

// Open loads (or initializes) the store rooted at directory/"kvs_"+instanceID.
// An empty directory means the current working directory.
func Open(instanceID uint64, needDefaults, needKVS Policy, directory string) (*Store, error) {
	return open(fsio.OS{}, instanceID, needDefaults, needKVS, directory)
}

// open is the fsio-injectable core of Open, kept unexported so tests can
// exercise it without a real filesystem dependency beyond what fsio.OS
// already requires (t.TempDir() in practice — see store_test.go).
func open(fs fsio.FS, instanceID uint64, needDefaults, needKVS Policy, directory string) (*Store, error) {
	if directory == "" {
		directory = "."
	}
	prefix := filepath.Join(directory, fmt.Sprintf("kvs_%d", instanceID))

	defaultsPair, err := persistence.ReadPair(fs, prefix+"_default", needDefaults)
	if err != nil {
		return nil, err
	}

	kvsPair, err := persistence.ReadPair(fs, prefix+"_0", needKVS)
	if err != nil {
		return nil, err
	}

	s := &Store{
		kvs:      kvsPair.Values,
		defaults: defaultsPair.Values,
		prefix:   prefix,
		fsImpl:   fs,
		snap:     snapshot.NewManager(fs, prefix),
	}
	s.flushOnDrop.Store(true)

	runtime.SetFinalizer(s, func(s *Store) {
		_ = s.Close()
	})

	return s, nil
}
