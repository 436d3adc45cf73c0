//go:build !windows

package filesystem

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckHealth_AccessibleWritableDir(t *testing.T) {
	c := NewChecker()
	ok, msg := c.CheckHealth(t.TempDir())
	require.True(t, ok)
	require.Empty(t, msg)
}

func TestCheckHealth_MissingDir(t *testing.T) {
	c := NewChecker()
	ok, msg := c.CheckHealth(filepath.Join(t.TempDir(), "does-not-exist"))
	require.False(t, ok)
	require.Contains(t, msg, "does not exist")
}

func TestFreeBytes_ReturnsPositive(t *testing.T) {
	free, err := FreeBytes(t.TempDir())
	require.NoError(t, err)
	require.Greater(t, free, int64(0))
}

func TestSameDevice_SameTempDirIsTrue(t *testing.T) {
	dir := t.TempDir()
	require.True(t, SameDevice(filepath.Join(dir, "a"), filepath.Join(dir, "b")))
}
