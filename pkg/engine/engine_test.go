package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhijitnavale/flatpak/pkg/config"
	"github.com/abhijitnavale/flatpak/pkg/engine"
	"github.com/abhijitnavale/flatpak/pkg/history"
	"github.com/abhijitnavale/flatpak/pkg/objectstore"
	"github.com/abhijitnavale/flatpak/pkg/paths"
)

func testEngine(t *testing.T) (*engine.Engine, *paths.Layout) {
	t.Helper()
	layout := paths.NewLayout(t.TempDir(), true)
	cfg, err := config.Load("")
	require.NoError(t, err)
	return engine.New(layout, cfg, nil, nil), layout
}

func fixtureRef() paths.Ref {
	return paths.Ref{Kind: paths.KindApp, Name: "org.x.App", Arch: "x86_64", Branch: "stable"}
}

// seedCommit writes a minimal commit/dirtree/filez closure directly
// into the engine's store and returns the commit checksum.
func seedCommit(t *testing.T, e *engine.Engine, content []byte) string {
	t.Helper()
	store, err := e.Store()
	require.NoError(t, err)

	filez, err := objectstore.EncodeFilez(nil, content)
	require.NoError(t, err)
	fileChecksum := objectstore.Checksum(filez)
	require.NoError(t, store.WriteObject(fileChecksum, objectstore.TypeFilez, filez))

	filesTree := objectstore.EncodeDirtree(objectstore.Dirtree{})
	filesTreeChecksum := objectstore.Checksum(filesTree)
	require.NoError(t, store.WriteObject(filesTreeChecksum, objectstore.TypeDirtree, filesTree))

	tree := objectstore.EncodeDirtree(objectstore.Dirtree{
		Files: []objectstore.FileEntry{{Name: "metadata", Checksum: fileChecksum}},
		Dirs:  []objectstore.DirEntry{{Name: "files", TreeChecksum: filesTreeChecksum}},
	})
	treeChecksum := objectstore.Checksum(tree)
	require.NoError(t, store.WriteObject(treeChecksum, objectstore.TypeDirtree, tree))

	commit := objectstore.EncodeCommit(objectstore.Commit{RootTree: treeChecksum})
	commitChecksum := objectstore.Checksum(commit)
	require.NoError(t, store.WriteObject(commitChecksum, objectstore.TypeCommit, commit))

	return commitChecksum
}

func TestDeployCheckoutsAndActivates(t *testing.T) {
	e, layout := testEngine(t)
	ref := fixtureRef()
	checksum := seedCommit(t, e, []byte("[Application]\nname=org.x.App\n"))

	require.NoError(t, e.Deploy(context.Background(), ref, checksum, "flathub"))

	deployDir := layout.DeployDir(ref, checksum)
	assert.FileExists(t, paths.MetadataPath(deployDir))
	assert.FileExists(t, paths.RefLockPath(deployDir))

	active, err := e.ReadActive(ref)
	require.NoError(t, err)
	assert.Equal(t, checksum, active)
}

func TestDeployTwiceFailsAlreadyDeployed(t *testing.T) {
	e, _ := testEngine(t)
	ref := fixtureRef()
	checksum := seedCommit(t, e, []byte("x"))

	require.NoError(t, e.Deploy(context.Background(), ref, checksum, "flathub"))
	err := e.Deploy(context.Background(), ref, checksum, "flathub")
	assert.Error(t, err)
}

func TestListDeployedAndListRefs(t *testing.T) {
	e, _ := testEngine(t)
	ref := fixtureRef()
	checksum := seedCommit(t, e, []byte("x"))
	require.NoError(t, e.Deploy(context.Background(), ref, checksum, "flathub"))

	deployed, err := e.ListDeployed(ref)
	require.NoError(t, err)
	assert.Equal(t, []string{checksum}, deployed)

	refs, err := e.ListRefs(paths.KindApp)
	require.NoError(t, err)
	assert.Contains(t, refs, ref.String())

	forName, err := e.ListRefsForName(paths.KindApp, "org.x.App")
	require.NoError(t, err)
	assert.Equal(t, []string{ref.String()}, forName)
}

func TestListDeployedOnMissingBaseIsEmptyNotError(t *testing.T) {
	e, _ := testEngine(t)
	deployed, err := e.ListDeployed(fixtureRef())
	require.NoError(t, err)
	assert.Empty(t, deployed)
}

func TestUndeployRepointsActiveAndQuarantines(t *testing.T) {
	e, layout := testEngine(t)
	ref := fixtureRef()
	checksum := seedCommit(t, e, []byte("x"))
	require.NoError(t, e.Deploy(context.Background(), ref, checksum, "flathub"))

	require.NoError(t, e.Undeploy(ref, checksum, true))

	_, err := os.Stat(layout.DeployDir(ref, checksum))
	assert.True(t, os.IsNotExist(err))

	active, err := e.ReadActive(ref)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestUndeployUnknownChecksumIsAlreadyUndeployed(t *testing.T) {
	e, _ := testEngine(t)
	err := e.Undeploy(fixtureRef(), "0000000000000000000000000000000000000000000000000000000000000000", true)
	assert.Error(t, err)
}

func TestMakeCurrentAndDropCurrent(t *testing.T) {
	e, layout := testEngine(t)

	require.NoError(t, e.MakeCurrent("org.x.App", "x86_64", "stable"))
	target, err := os.Readlink(layout.CurrentLink("org.x.App"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("x86_64", "stable"), target)

	require.NoError(t, e.DropCurrent("org.x.App"))
	_, err = os.Readlink(layout.CurrentLink("org.x.App"))
	assert.True(t, os.IsNotExist(err))
}

func TestDeployAndUndeployRecordHistory(t *testing.T) {
	layout := paths.NewLayout(t.TempDir(), true)
	cfg, err := config.Load("")
	require.NoError(t, err)

	hist, err := history.Open(history.DBPath(layout.Root()))
	require.NoError(t, err)
	defer hist.Close()

	e := engine.New(layout, cfg, nil, hist)
	ref := fixtureRef()
	checksum := seedCommit(t, e, []byte("x"))

	require.NoError(t, e.Deploy(context.Background(), ref, checksum, "flathub"))
	require.NoError(t, e.Undeploy(ref, checksum, true))

	entries, err := hist.History(context.Background(), ref.String())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, history.EventDeployed, entries[0].Event)
	assert.Equal(t, history.EventUndeployed, entries[1].Event)
}

func TestGetIfDeployedReportsAbsenceWithoutError(t *testing.T) {
	e, _ := testEngine(t)
	ref := fixtureRef()

	dir, err := e.GetIfDeployed(ref, "0000000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.Empty(t, dir)
}

func TestGetIfDeployedReturnsDirWhenPresent(t *testing.T) {
	e, layout := testEngine(t)
	ref := fixtureRef()
	checksum := seedCommit(t, e, []byte("x"))
	require.NoError(t, e.Deploy(context.Background(), ref, checksum, "flathub"))

	dir, err := e.GetIfDeployed(ref, checksum)
	require.NoError(t, err)
	assert.Equal(t, layout.DeployDir(ref, checksum), dir)
}

func TestCurrentRefResolvesCurrentSymlink(t *testing.T) {
	e, _ := testEngine(t)

	require.NoError(t, e.MakeCurrent("org.x.App", "x86_64", "stable"))

	ref, err := e.CurrentRef("org.x.App")
	require.NoError(t, err)
	assert.Equal(t, "app/org.x.App/x86_64/stable", ref)
}

func TestCurrentRefEmptyWhenUnset(t *testing.T) {
	e, _ := testEngine(t)

	ref, err := e.CurrentRef("org.x.Nobody")
	require.NoError(t, err)
	assert.Empty(t, ref)
}

func TestPruneDelegatesToObjectStore(t *testing.T) {
	e, _ := testEngine(t)
	_, err := e.Store()
	require.NoError(t, err)

	result, err := e.Prune()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.TotalObjects, 0)
}
