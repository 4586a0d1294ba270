package exports_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhijitnavale/flatpak/pkg/exports"
)

func TestMirrorDirCreatesRelativeSymlinks(t *testing.T) {
	source := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(source, "org.x.App.desktop"), []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(source, "icons"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(source, "icons", "org.x.App.png"), []byte("x"), 0644))

	destination := filepath.Join(t.TempDir(), "exports")
	prefix := filepath.Join("..", "app", "org.x.App", "current", "active", "export")

	require.NoError(t, exports.MirrorDir(source, destination, prefix))

	target, err := os.Readlink(filepath.Join(destination, "org.x.App.desktop"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(prefix, "org.x.App.desktop"), target)

	iconTarget, err := os.Readlink(filepath.Join(destination, "icons", "org.x.App.png"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("..", prefix, "icons", "org.x.App.png"), iconTarget)
}

func TestRemoveDanglingSymlinksSweepsStaleLinksOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real.txt"), []byte("x"), 0644))
	require.NoError(t, os.Symlink(filepath.Join(dir, "real.txt"), filepath.Join(dir, "live-link")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing.txt"), filepath.Join(dir, "dangling-link")))

	require.NoError(t, exports.RemoveDanglingSymlinks(dir))

	_, err := os.Lstat(filepath.Join(dir, "live-link"))
	assert.NoError(t, err)
	_, err = os.Lstat(filepath.Join(dir, "dangling-link"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunTriggersSwallowsFailures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t.trigger"), []byte("x"), 0755))

	assert.NotPanics(t, func() {
		exports.RunTriggers("/bin/false", t.TempDir(), dir)
	})
}
