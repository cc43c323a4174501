package system

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	a := NewAdapter()
	path := filepath.Join(t.TempDir(), "nested", "schedule.cron")

	require.NoError(t, a.WriteFileAtomic(path, []byte("0 2 * * *\n"), 0o644))
	require.NoError(t, a.WriteFileAtomic(path, []byte("*/5 * * * *\n"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "*/5 * * * *\n", string(data))

	// No temp files are left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMoveFile(t *testing.T) {
	a := NewAdapter()
	dir := t.TempDir()
	src := filepath.Join(dir, "found_tenders.json")
	dst := filepath.Join(dir, "artifacts", "run.json")
	require.NoError(t, os.WriteFile(src, []byte(`{"items":[]}`), 0o644))

	require.NoError(t, a.MoveFile(src, dst))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[]}`, string(data))
}

func TestMoveFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := NewAdapter().MoveFile(filepath.Join(dir, "missing.json"), filepath.Join(dir, "out.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
