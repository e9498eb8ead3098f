package localdisc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AnishMulay/sandfs/internal/log_service/inmemory"
	ss "github.com/AnishMulay/sandfs/internal/snapshot_service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalDiscSnapshotStore {
	t.Helper()
	store, err := NewLocalDiscSnapshotStore(t.TempDir(), "", inmemory.NewInMemoryLogService())
	require.NoError(t, err)
	return store
}

func TestLocalDiscSnapshotStore_SaveLoad(t *testing.T) {
	tests := []struct {
		name  string
		saves [][]byte
		want  []byte
	}{
		{name: "single save", saves: [][]byte{[]byte(`{"a":1}`)}, want: []byte(`{"a":1}`)},
		{name: "overwrite wholesale", saves: [][]byte{[]byte("first, longer blob"), []byte("2nd")}, want: []byte("2nd")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			for _, data := range tt.saves {
				require.NoError(t, store.Save(data))
			}

			got, err := store.Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, ss.DefaultSnapshotName, filepath.Base(store.Path()))

			// no temp files left behind
			entries, err := os.ReadDir(filepath.Dir(store.Path()))
			require.NoError(t, err)
			assert.Len(t, entries, 1)
		})
	}
}

func TestLocalDiscSnapshotStore_LoadMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Load()
	assert.ErrorIs(t, err, ss.ErrSnapshotNotFound)
}

func TestLocalDiscSnapshotStore_Quarantine(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save([]byte("junk")))

	moved, err := store.Quarantine()
	require.NoError(t, err)

	_, err = store.Load()
	assert.ErrorIs(t, err, ss.ErrSnapshotNotFound)

	data, err := os.ReadFile(moved)
	require.NoError(t, err)
	assert.Equal(t, []byte("junk"), data)
}
