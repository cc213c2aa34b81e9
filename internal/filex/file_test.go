package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesNestedAndIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs", "2026")

	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))

	fi, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
}

func TestEnsureDir_FailsIfFileWithSameNameExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	require.Error(t, EnsureDir(path))
}

func TestSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".bashrc")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o644))

	assert.Equal(t, uint64(100), Size(path))

	missing := filepath.Join(dir, "gone")
	assert.Equal(t, uint64(0), Size(missing))
}

func TestWriteFile_CreatesParentsWithDefaultPerm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "apt", "sources.list")

	require.NoError(t, WriteFile(path, []byte("deb x"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "deb x", string(data))

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o644), fi.Mode().Perm())
	}
}

func TestWriteFile_KeepsExistingMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	path := filepath.Join(t.TempDir(), ".gitconfig")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	require.NoError(t, WriteFile(path, []byte("new"), 0o644))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".*.*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
