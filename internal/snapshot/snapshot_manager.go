// ============================================================================
// KVS Snapshot Ring
// ============================================================================
//
// Package: internal/snapshot
// File: snapshot_manager.go
// Purpose: Maintain the MAX_SNAPSHOTS-deep ring of P_1..P_N slots behind
//          the live P_0 slot, by renaming {json,hash} pairs one slot up
//          before every commit.
//
// os.Rename is a POSIX atomic replace, used here per slot rather than for
// a single temp-file swap: each commit walks the ring and performs 2N
// renames (.hash and .json per slot), tolerating missing source slots on
// a fresh instance.
//
// ============================================================================

package snapshot

import (
	"fmt"
	"os"

	"github.com/chuliyu-labs/kvstore-core/internal/fsio"
	"github.com/chuliyu-labs/kvstore-core/pkg/kvs"
)

// MaxSnapshots is the deepest retained slot, P_1..P_MaxSnapshots. P_0 is
// the live slot and is not part of the ring.
const MaxSnapshots = 3

// Manager walks the snapshot ring rooted at a given key-value prefix
// (e.g. "/var/lib/kvs/kvs_7"); slot i's files are "<prefix>_<i>.json" and
// "<prefix>_<i>.hash".
type Manager struct {
	fs     fsio.FS
	prefix string
}

// NewManager builds a ring manager over prefix using fs for all file
// operations.
func NewManager(fs fsio.FS, prefix string) *Manager {
	return &Manager{fs: fs, prefix: prefix}
}

func (m *Manager) slotPrefix(i int) string {
	return fmt.Sprintf("%s_%d", m.prefix, i)
}

// Count returns the largest k such that every P_i.json exists for
// i in 1..=k, capped at MaxSnapshots. A failed existence query (as
// opposed to a clean "not found") is reported as PhysicalStorageFailure.
func (m *Manager) Count() (int, error) {
	count := 0
	for i := 1; i <= MaxSnapshots; i++ {
		path := m.slotPrefix(i) + ".json"
		ok, err := m.fs.Exists(path)
		if err != nil {
			return 0, kvs.WrapPhysicalStorageFailure(fmt.Sprintf("stat %s", path), err)
		}
		if !ok {
			break
		}
		count = i
	}
	return count, nil
}

// Rotate shifts every slot up by one: P_{i-1} becomes P_i, walking from
// MaxSnapshots down to 1 so no slot is overwritten before it has been
// moved out of the way. P_MaxSnapshots is dropped. A missing source slot
// is not an error; any other rename failure stops the walk and is
// reported as PhysicalStorageFailure.
//
// Callers must hold the store lock for the duration of Rotate: rotation
// holds the store lock for the whole walk.
func (m *Manager) Rotate() error {
	for i := MaxSnapshots; i >= 1; i-- {
		if err := m.renameSlotFile(i-1, i, ".hash"); err != nil {
			return err
		}
		if err := m.renameSlotFile(i-1, i, ".json"); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) renameSlotFile(from, to int, ext string) error {
	srcPath := m.slotPrefix(from) + ext
	dstPath := m.slotPrefix(to) + ext

	err := m.fs.Rename(srcPath, dstPath)
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return nil
	}
	return kvs.WrapPhysicalStorageFailure(fmt.Sprintf("rotate %s -> %s", srcPath, dstPath), err)
}

// SlotPrefix exposes the file prefix for slot i, for callers that need
// the exact .json/.hash paths (e.g. kvs_filename/hash_filename).
func (m *Manager) SlotPrefix(i int) string {
	return m.slotPrefix(i)
}
