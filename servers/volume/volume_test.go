package volume

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/AnishMulay/sandfs/internal/config"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := config.Default()
	cfg.DiskPath = filepath.Join(dir, "disk.img")
	cfg.SnapshotDir = filepath.Join(dir, "meta")
	cfg.LogDir = filepath.Join(dir, "logs")
	cfg.BlockSize = 32
	cfg.NumBlocks = 16

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(dir, "sandfs.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	opts := Options{ConfigPath: writeConfig(t, dir)}

	vol, err := Open(opts)
	require.NoError(t, err)
	require.NoError(t, vol.FS.CreateDirectory("docs"))
	require.NoError(t, vol.FS.CreateFile("docs/a.txt", []byte("survives a restart of the whole stack")))
	require.NoError(t, vol.Close())

	_, err = os.Stat(filepath.Join(dir, "meta", config.Default().SnapshotName))
	require.NoError(t, err)

	vol, err = Open(opts)
	require.NoError(t, err)
	defer vol.Close()

	assert.NoError(t, vol.FS.RecoveryError())
	got, err := vol.FS.ReadFile("/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("survives a restart of the whole stack"), got)
	assert.Equal(t, 16, vol.FS.GetFsStat().TotalBlocks)
}

func TestOpen_RejectsUnknownLogLevel(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(Options{ConfigPath: writeConfig(t, dir), LogLevel: "chatty"})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
