package overrides_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/abhijitnavale/flatpak/pkg/overrides"
	"github.com/abhijitnavale/flatpak/pkg/paths"
	"github.com/abhijitnavale/flatpak/pkg/storeerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsEmptyContext(t *testing.T) {
	scope := overrides.Scope{Layout: paths.NewLayout(t.TempDir(), true)}

	f, err := overrides.Load(scope, "org.x.App")
	require.NoError(t, err)
	assert.Empty(t, f.Sections()[0].Keys())
}

func TestLoadMalformedFileFailsWithParseError(t *testing.T) {
	dir := t.TempDir()
	scope := overrides.Scope{Layout: paths.NewLayout(dir, true)}
	require.NoError(t, os.MkdirAll(scope.Layout.OverridesDir(), 0755))
	require.NoError(t, os.WriteFile(scope.Layout.OverridePath("org.x.App"), []byte("[Context\nbad"), 0644))

	_, err := overrides.Load(scope, "org.x.App")
	require.Error(t, err)
	assert.Equal(t, storeerr.ParseError, storeerr.GetCode(err))
}

func TestSaveCreatesParentDirAndRoundtrips(t *testing.T) {
	dir := t.TempDir()
	scope := overrides.Scope{Layout: paths.NewLayout(dir, true)}

	f, err := overrides.Load(scope, "org.x.App")
	require.NoError(t, err)
	section, err := f.NewSection("Context")
	require.NoError(t, err)
	section.NewKey("filesystems", "home")

	require.NoError(t, overrides.Save(scope, f, "org.x.App"))

	assert.DirExists(t, scope.Layout.OverridesDir())
	assert.FileExists(t, filepath.Join(scope.Layout.OverridesDir(), "org.x.App"))

	reloaded, err := overrides.Load(scope, "org.x.App")
	require.NoError(t, err)
	assert.Equal(t, "home", reloaded.Section("Context").Key("filesystems").String())
}

func TestMergeSystemThenUser(t *testing.T) {
	sys, err := overrides.Load(overrides.Scope{Layout: paths.NewLayout(t.TempDir(), false)}, "org.x.App")
	require.NoError(t, err)
	sysSection, _ := sys.NewSection("Context")
	sysSection.NewKey("filesystems", "host")

	usr, err := overrides.Load(overrides.Scope{Layout: paths.NewLayout(t.TempDir(), true)}, "org.x.App")
	require.NoError(t, err)
	usrSection, _ := usr.NewSection("Context")
	usrSection.NewKey("filesystems", "home")

	merged := overrides.Merge(sys, usr)
	assert.Equal(t, "home", merged.Section("Context").Key("filesystems").String())
}
