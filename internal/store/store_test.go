package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chuliyu-labs/kvstore-core/internal/fsio"
	"github.com/chuliyu-labs/kvstore-core/internal/snapshot"
	"github.com/chuliyu-labs/kvstore-core/pkg/kvs"
)

func newTestStore(t *testing.T, instanceID uint64) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := open(fsio.OS{}, instanceID, Optional, Optional, dir)
	require.NoError(t, err)
	return s
}

// statFailureFS wraps fsio.OS but makes Exists fail for a chosen path,
// simulating a permission-denied or I/O-error stat rather than a clean
// "not found".
type statFailureFS struct {
	fsio.OS
	failPath string
}

func (f statFailureFS) Exists(path string) (bool, error) {
	if path == f.failPath {
		return false, errors.New("permission denied")
	}
	return f.OS.Exists(path)
}

func TestKVSFilenamePropagatesStatFailure(t *testing.T) {
	dir := t.TempDir()
	s, err := open(fsio.OS{}, 10, Optional, Optional, dir)
	require.NoError(t, err)

	path := s.snap.SlotPrefix(0) + ".json"
	s.fsImpl = statFailureFS{failPath: path}

	_, err = s.KVSFilename(0)
	require.Error(t, err)
	assert.Equal(t, kvs.KindPhysicalStorageFailure, kvs.KindOf(err))
}

// Invariant 4: get(k) returns written, else default, else KeyNotFound.
func TestGetOrdering(t *testing.T) {
	s := newTestStore(t, 1)
	s.defaults = map[string]kvs.Value{"a": kvs.NewI32(1)}

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, kvs.ErrKeyNotFound)

	v, err := s.Get("a")
	require.NoError(t, err)
	got, _ := v.AsI32()
	assert.Equal(t, int32(1), got)

	require.NoError(t, s.Set("a", kvs.NewI32(2)))
	v, err = s.Get("a")
	require.NoError(t, err)
	got, _ = v.AsI32()
	assert.Equal(t, int32(2), got)
}

// Invariant 5: reset_key behavior with/without a default.
func TestResetKeyRequiresDefault(t *testing.T) {
	s := newTestStore(t, 1)
	require.NoError(t, s.Set("no-default", kvs.NewI32(1)))

	err := s.ResetKey("no-default")
	assert.ErrorIs(t, err, kvs.ErrKeyDefaultNotFound)

	// entry must be left untouched
	ok, err := s.Contains("no-default")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResetKeyWithDefault(t *testing.T) {
	s := newTestStore(t, 1)
	s.defaults = map[string]kvs.Value{"lang": kvs.NewStr("en")}
	require.NoError(t, s.Set("lang", kvs.NewStr("de")))

	require.NoError(t, s.ResetKey("lang"))

	ok, err := s.Contains("lang")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, s.HasDefault("lang"))

	v, err := s.Get("lang")
	require.NoError(t, err)
	got, _ := v.AsStr()
	assert.Equal(t, "en", got)
}

func TestRemoveMissingKeyIsError(t *testing.T) {
	s := newTestStore(t, 1)
	err := s.Remove("nope")
	assert.ErrorIs(t, err, kvs.ErrKeyNotFound)
}

func TestResetClearsWrittenNotDefaults(t *testing.T) {
	s := newTestStore(t, 1)
	s.defaults = map[string]kvs.Value{"d": kvs.NewI32(9)}
	require.NoError(t, s.Set("a", kvs.NewI32(1)))

	require.NoError(t, s.Reset())

	keys, err := s.AllKeys()
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.True(t, s.HasDefault("d"))
}

// S4 / invariants 6,7: snapshot ring behavior under repeated flush.
func TestSnapshotRing(t *testing.T) {
	dir := t.TempDir()
	s, err := open(fsio.OS{}, 4, Optional, Optional, dir)
	require.NoError(t, err)

	for i := int32(0); i <= 4; i++ {
		require.NoError(t, s.Set("n", kvs.NewI32(i)))
		require.NoError(t, s.Flush())

		count, err := s.SnapshotCount()
		require.NoError(t, err)
		assert.LessOrEqual(t, count, snapshot.MaxSnapshots)
	}

	count, err := s.SnapshotCount()
	require.NoError(t, err)
	assert.Equal(t, snapshot.MaxSnapshots, count)

	// slot 0 holds n=4 (the live value already in memory).
	v, err := s.Get("n")
	require.NoError(t, err)
	got, _ := v.AsI32()
	assert.Equal(t, int32(4), got)

	// snapshot_restore(2) should yield n=2 per S4.
	require.NoError(t, s.SnapshotRestore(2))
	v, err = s.Get("n")
	require.NoError(t, err)
	got, _ = v.AsI32()
	assert.Equal(t, int32(2), got)
}

func TestSnapshotRestoreInvalidID(t *testing.T) {
	s := newTestStore(t, 1)

	err := s.SnapshotRestore(0)
	assert.ErrorIs(t, err, kvs.ErrInvalidSnapshotID)

	err = s.SnapshotRestore(1)
	assert.ErrorIs(t, err, kvs.ErrInvalidSnapshotID)
}

// S6: mixed-tag array round-trip.
func TestMixedTagArrayRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := open(fsio.OS{}, 5, Optional, Optional, dir)
	require.NoError(t, err)

	mix := kvs.NewArr([]kvs.Value{
		kvs.NewI32(1),
		kvs.NewBool(true),
		kvs.NewStr("x"),
		kvs.NewNull(),
		kvs.NewObj(map[string]kvs.Value{"k": kvs.NewF64(2.5)}),
	})
	require.NoError(t, s.Set("mix", mix))
	require.NoError(t, s.Flush())

	s2, err := open(fsio.OS{}, 5, Optional, Required, dir)
	require.NoError(t, err)

	got, err := s2.Get("mix")
	require.NoError(t, err)
	assert.True(t, mix.Equal(got))
}

// Invariant 8: N+1 flushes on a fresh instance leave exactly N+1 .json
// files (slots 0..N), all hash-verified (re-openable).
func TestNPlusOneFlushesLeaveNPlusOneSlots(t *testing.T) {
	dir := t.TempDir()
	s, err := open(fsio.OS{}, 6, Optional, Optional, dir)
	require.NoError(t, err)

	for i := 0; i <= snapshot.MaxSnapshots; i++ {
		require.NoError(t, s.Set("n", kvs.NewI32(int32(i))))
		require.NoError(t, s.Flush())
	}

	for slot := 0; slot <= snapshot.MaxSnapshots; slot++ {
		path := filepath.Join(dir, "kvs_6_"+itoaSlot(slot)+".json")
		_, statErr := os.Stat(path)
		require.NoError(t, statErr, "slot %d should exist", slot)
	}

	// every slot must independently verify: reopening the live slot must
	// not error, and SnapshotRestore must succeed for each retained slot.
	count, err := s.SnapshotCount()
	require.NoError(t, err)
	assert.Equal(t, snapshot.MaxSnapshots, count)
	for slot := 1; slot <= count; slot++ {
		assert.NoError(t, s.SnapshotRestore(slot))
	}
}

// Invariant 9 / S5: torn commit detection on open.
func TestTornCommitDetection(t *testing.T) {
	dir := t.TempDir()
	s, err := open(fsio.OS{}, 7, Optional, Optional, dir)
	require.NoError(t, err)
	require.NoError(t, s.Set("k", kvs.NewI32(1)))
	require.NoError(t, s.Flush())

	jsonPath := filepath.Join(dir, "kvs_7_0.json")
	require.NoError(t, os.Truncate(jsonPath, 1))

	_, err = open(fsio.OS{}, 7, Optional, Required, dir)
	require.Error(t, err)
	assert.Equal(t, kvs.KindValidationFailed, kvs.KindOf(err))

	_, err = open(fsio.OS{}, 7, Optional, Optional, dir)
	require.Error(t, err)
	assert.Equal(t, kvs.KindValidationFailed, kvs.KindOf(err))
}

func TestCloseFlushesWhenFlushOnDropSet(t *testing.T) {
	dir := t.TempDir()
	s, err := open(fsio.OS{}, 8, Optional, Optional, dir)
	require.NoError(t, err)
	require.NoError(t, s.Set("k", kvs.NewI32(42)))

	require.NoError(t, s.Close())

	reopened, err := open(fsio.OS{}, 8, Optional, Required, dir)
	require.NoError(t, err)
	v, err := reopened.Get("k")
	require.NoError(t, err)
	got, _ := v.AsI32()
	assert.Equal(t, int32(42), got)
}

func TestCloseSkipsFlushWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	s, err := open(fsio.OS{}, 9, Optional, Optional, dir)
	require.NoError(t, err)
	s.SetFlushOnDrop(false)
	require.NoError(t, s.Set("k", kvs.NewI32(1)))

	require.NoError(t, s.Close())

	_, err = os.Stat(filepath.Join(dir, "kvs_9_0.json"))
	assert.True(t, os.IsNotExist(err))
}

func itoaSlot(i int) string {
	return string(rune('0' + i))
}
