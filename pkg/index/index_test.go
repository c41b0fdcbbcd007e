package index

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventIndexPersists(t *testing.T) {
	dir := t.TempDir()
	idx, err := NewEventIndex(dir)
	require.NoError(t, err)
	synced := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	idx.now = func() time.Time { return synced }

	assert.Equal(t, "", idx.Get(1))
	idx.Set(1, "evt-1")
	idx.Set(2, "evt-2")
	idx.Remove(2)
	require.NoError(t, idx.Save())

	reopened, err := NewEventIndex(dir)
	require.NoError(t, err)
	entry, ok := reopened.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, "evt-1", entry.EventID)
	assert.True(t, synced.Equal(entry.Synced))
	_, ok = reopened.Lookup(2)
	assert.False(t, ok)
}

func TestSaveSkipsWhenClean(t *testing.T) {
	dir := t.TempDir()
	idx, err := NewEventIndex(dir)
	require.NoError(t, err)

	require.NoError(t, idx.Save())
	_, err = os.Stat(idx.Path)
	assert.True(t, os.IsNotExist(err))

	idx.Remove(5)
	require.NoError(t, idx.Save())
	_, err = os.Stat(idx.Path)
	assert.True(t, os.IsNotExist(err))

	idx.Set(5, "evt")
	require.NoError(t, idx.Save())
	assert.FileExists(t, idx.Path)
}

func TestTaskIDsSorted(t *testing.T) {
	idx, err := NewEventIndex(t.TempDir())
	require.NoError(t, err)
	for _, id := range []int64{30, 4, 12} {
		idx.Set(id, "evt")
	}

	assert.Equal(t, []int64{4, 12, 30}, idx.TaskIDs())
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	idx, err := NewEventIndex(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(idx.Path, []byte("[]"), 0600))

	_, err = NewEventIndex(dir)
	assert.Error(t, err)
}
