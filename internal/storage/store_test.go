package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, dir string, opts Options) *Store {
	t.Helper()
	s, err := Open(dir, "n1-test", opts)
	require.NoError(t, err)
	return s
}

func TestStore_AppendAssignsContiguousOffsetsPerKey(t *testing.T) {
	s := openTestStore(t, t.TempDir(), Options{})
	defer s.Close()

	for want := uint64(0); want < 5; want++ {
		got, err := s.Append("k1", 100+want)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := s.Append("k2", 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got, "a new key starts at 0")

	got, err = s.Append("k1", 200)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got)

	assert.Equal(t, map[string]uint64{"k1": 5, "k2": 0}, s.Offsets())
}

func TestStore_RecordFormat(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir, Options{})

	_, err := s.Append("k1", 123)
	require.NoError(t, err)
	_, err = s.Append("k2", 9)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	data, err := os.ReadFile(filepath.Join(dir, "n1-test.log"))
	require.NoError(t, err)
	assert.Equal(t, "0:k1:123\n0:k2:9\n", string(data))

	meta, err := os.ReadFile(filepath.Join(dir, "n1-test.meta"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"k1":0,"k2":0}`, string(meta))
}

func TestStore_ReadFromFiltersByKeyAndOffset(t *testing.T) {
	s := openTestStore(t, t.TempDir(), Options{})
	defer s.Close()

	appends := []struct {
		key   string
		value uint64
	}{
		{"k1", 100}, {"k1", 101}, {"k2", 100}, {"k1", 102}, {"k2", 101}, {"k1", 103}, {"k3", 1},
	}
	for _, a := range appends {
		_, err := s.Append(a.key, a.value)
		require.NoError(t, err)
	}

	res, err := s.ReadFrom(map[string]uint64{"k1": 1, "k2": 0, "missing": 0})
	require.NoError(t, err)

	assert.Equal(t, [][2]uint64{{1, 101}, {2, 102}, {3, 103}}, res["k1"])
	assert.Equal(t, [][2]uint64{{0, 100}, {1, 101}}, res["k2"])
	assert.NotContains(t, res, "missing")
	assert.NotContains(t, res, "k3", "keys not requested are filtered out")
}

func TestStore_ReadFromPastEnd(t *testing.T) {
	s := openTestStore(t, t.TempDir(), Options{})
	defer s.Close()

	_, err := s.Append("k1", 1)
	require.NoError(t, err)

	res, err := s.ReadFrom(map[string]uint64{"k1": 10})
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = s.ReadFrom(nil)
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestStore_RestartRestoresOffsets(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir, Options{})
	for i := 0; i < 3; i++ {
		_, err := s.Append("k1", uint64(i))
		require.NoError(t, err)
	}
	_, err := s.Append("k2", 42)
	require.NoError(t, err)
	before := s.Offsets()
	require.NoError(t, s.Close())

	reopened := openTestStore(t, dir, Options{})
	defer reopened.Close()
	assert.Equal(t, before, reopened.Offsets())

	next, err := reopened.Append("k1", 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), next)

	res, err := reopened.ReadFrom(map[string]uint64{"k1": 2})
	require.NoError(t, err)
	assert.Equal(t, [][2]uint64{{2, 2}, {3, 9}}, res["k1"])
}

// Without a snapshot the offset table starts empty and offsets are reused.
func TestStore_CrashLosesOffsetsWithoutRebuild(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir, Options{})
	_, err := s.Append("k1", 1)
	require.NoError(t, err)
	_, err = s.Append("k1", 2)
	require.NoError(t, err)
	// simulate a crash: release the file without writing the snapshot
	require.NoError(t, s.log.Close())

	reopened := openTestStore(t, dir, Options{})
	defer reopened.Close()
	assert.Empty(t, reopened.Offsets())

	offset, err := reopened.Append("k1", 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), offset, "duplicate offset after crash")
}

func TestStore_RebuildOffsetsAfterCrash(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir, Options{})
	_, err := s.Append("k1", 1)
	require.NoError(t, err)
	_, err = s.Append("k1", 2)
	require.NoError(t, err)
	_, err = s.Append("k2", 5)
	require.NoError(t, err)
	require.NoError(t, s.log.Close())

	reopened := openTestStore(t, dir, Options{RebuildOffsets: true})
	defer reopened.Close()
	assert.Equal(t, map[string]uint64{"k1": 1, "k2": 0}, reopened.Offsets())

	offset, err := reopened.Append("k1", 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), offset)
}

func TestStore_KeysWithColons(t *testing.T) {
	s := openTestStore(t, t.TempDir(), Options{})
	defer s.Close()

	_, err := s.Append("topic:a", 11)
	require.NoError(t, err)
	_, err = s.Append("topic", 12)
	require.NoError(t, err)

	res, err := s.ReadFrom(map[string]uint64{"topic:a": 0, "topic": 0})
	require.NoError(t, err)
	assert.Equal(t, [][2]uint64{{0, 11}}, res["topic:a"])
	assert.Equal(t, [][2]uint64{{0, 12}}, res["topic"])
}

func TestStore_RejectsUnframeableKeys(t *testing.T) {
	s := openTestStore(t, t.TempDir(), Options{})
	defer s.Close()

	for _, key := range []string{"", "a\nb", "a\rb"} {
		_, err := s.Append(key, 1)
		assert.ErrorIs(t, err, ErrInvalidKey)
	}
	assert.Empty(t, s.Offsets())
}

func TestStore_CorruptFilesAreStorageFailures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "n1-test.meta"), []byte("{not json"), 0644))
	_, err := Open(dir, "n1-test", Options{})
	assert.ErrorIs(t, err, ErrStorage)

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "n1-test.log"), []byte("0:k1:1\ngarbage\n"), 0644))
	s := openTestStore(t, dir, Options{})
	defer s.Close()
	_, err = s.ReadFrom(map[string]uint64{"k1": 0})
	assert.ErrorIs(t, err, ErrStorage)
}

func TestStore_EmptySnapshotFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "n1-test.meta"), nil, 0644))
	s := openTestStore(t, dir, Options{})
	defer s.Close()
	assert.Empty(t, s.Offsets())
}

func TestStore_CloseIsIdempotent(t *testing.T) {
	s := openTestStore(t, t.TempDir(), Options{})
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Append("k1", 1)
	assert.ErrorIs(t, err, ErrStorage)
}
