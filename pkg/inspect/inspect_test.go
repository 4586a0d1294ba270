package inspect_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhijitnavale/flatpak/pkg/filesystem"
	"github.com/abhijitnavale/flatpak/pkg/inspect"
	"github.com/abhijitnavale/flatpak/pkg/paths"
	"github.com/abhijitnavale/flatpak/pkg/types"
)

func fixtureRef() paths.Ref {
	return paths.Ref{Kind: paths.KindApp, Name: "org.x.App", Arch: "x86_64", Branch: "stable"}
}

func seedDeployment(t *testing.T, fsys types.FS, layout *paths.Layout, ref paths.Ref, checksum string) {
	t.Helper()
	dir := layout.DeployDir(ref, checksum)
	require.NoError(t, fsys.MkdirAll(paths.FilesDir(dir), 0755))
	require.NoError(t, fsys.WriteFile(paths.MetadataPath(dir), []byte("[Application]\nname=org.x.App\n"), 0644))
	require.NoError(t, fsys.Symlink(checksum, layout.ActiveLink(ref)))
}

func TestLoadByActiveSymlink(t *testing.T) {
	mem := afero.NewMemMapFs()
	fsys := filesystem.NewAferoFS(mem)
	layout := paths.NewLayout("/base", true)
	ref := fixtureRef()
	seedDeployment(t, fsys, layout, ref, "abc123")

	insp := inspect.New(fsys, nil, layout, nil)
	deployment, err := insp.LoadDeployed(layout, ref, "")
	require.NoError(t, err)

	assert.Equal(t, "abc123", deployment.Checksum)
	assert.Equal(t, "org.x.App", deployment.Metadata.Section("Application").Key("name").String())
	assert.NotNil(t, deployment.Overrides)
}

func TestLoadExplicitChecksumSkipsActiveLink(t *testing.T) {
	mem := afero.NewMemMapFs()
	fsys := filesystem.NewAferoFS(mem)
	layout := paths.NewLayout("/base", true)
	ref := fixtureRef()
	seedDeployment(t, fsys, layout, ref, "checksum-one")

	insp := inspect.New(fsys, nil, layout, nil)
	deployment, err := insp.LoadDeployed(layout, ref, "checksum-one")
	require.NoError(t, err)
	assert.Equal(t, "checksum-one", deployment.Checksum)
}

func TestLoadNotInstalledFailsNotDeployed(t *testing.T) {
	mem := afero.NewMemMapFs()
	fsys := filesystem.NewAferoFS(mem)
	layout := paths.NewLayout("/base", true)

	insp := inspect.New(fsys, nil, layout, nil)
	_, err := insp.LoadDeployed(layout, fixtureRef(), "")
	assert.Error(t, err)
}

func TestLoadMergesSystemAndUserOverrides(t *testing.T) {
	mem := afero.NewMemMapFs()
	fsys := filesystem.NewAferoFS(mem)
	systemLayout := paths.NewLayout("/system", false)
	userLayout := paths.NewLayout("/user", true)
	ref := fixtureRef()
	seedDeployment(t, fsys, userLayout, ref, "abc123")

	require.NoError(t, fsys.MkdirAll(systemLayout.OverridesDir(), 0755))
	require.NoError(t, fsys.WriteFile(systemLayout.OverridePath(ref.Name), []byte("[Context]\nshared=network\n"), 0644))
	require.NoError(t, fsys.MkdirAll(userLayout.OverridesDir(), 0755))
	require.NoError(t, fsys.WriteFile(userLayout.OverridePath(ref.Name), []byte("[Context]\nfilesystems=home\n"), 0644))

	insp := inspect.New(fsys, systemLayout, userLayout, nil)
	deployment, err := insp.LoadDeployed(userLayout, ref, "")
	require.NoError(t, err)

	ctx := deployment.Overrides.Section("Context")
	assert.Equal(t, "network", ctx.Key("shared").String())
	assert.Equal(t, "home", ctx.Key("filesystems").String())
}

func TestLoadRuntimeRefHasNoOverrides(t *testing.T) {
	mem := afero.NewMemMapFs()
	fsys := filesystem.NewAferoFS(mem)
	layout := paths.NewLayout("/base", true)
	ref := paths.Ref{Kind: paths.KindRuntime, Name: "org.x.Runtime", Arch: "x86_64", Branch: "stable"}
	seedDeployment(t, fsys, layout, ref, "abc123")

	insp := inspect.New(fsys, nil, layout, nil)
	deployment, err := insp.LoadDeployed(layout, ref, "")
	require.NoError(t, err)
	assert.Nil(t, deployment.Overrides)
}
