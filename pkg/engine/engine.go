package engine

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhijitnavale/flatpak/pkg/config"
	"github.com/abhijitnavale/flatpak/pkg/exports"
	"github.com/abhijitnavale/flatpak/pkg/history"
	"github.com/abhijitnavale/flatpak/pkg/lock"
	"github.com/abhijitnavale/flatpak/pkg/logging"
	"github.com/abhijitnavale/flatpak/pkg/objectstore"
	"github.com/abhijitnavale/flatpak/pkg/paths"
	"github.com/abhijitnavale/flatpak/pkg/progress"
	"github.com/abhijitnavale/flatpak/pkg/remote"
	"github.com/abhijitnavale/flatpak/pkg/storeerr"
)

var log = logging.GetLogger("engine")

// Engine is a plain struct owning its base-directory handle and a
// lazily initialized object-store handle; construction takes (layout,
// config, object cache, history store), no polymorphism is required for
// the single kind of installation it drives.
type Engine struct {
	Layout  *paths.Layout
	Config  *config.Config
	Cache   *remote.ObjectCache
	History *history.Store

	store *objectstore.Store
}

// New builds an Engine over layout, not yet touching disk. History may
// be nil, in which case deploy/undeploy events are simply not recorded.
func New(layout *paths.Layout, cfg *config.Config, cache *remote.ObjectCache, hist *history.Store) *Engine {
	return &Engine{Layout: layout, Config: cfg, Cache: cache, History: hist}
}

func (e *Engine) recordHistory(ref paths.Ref, checksum, event string) {
	if e.History == nil {
		return
	}
	if err := e.History.Record(context.Background(), ref.String(), checksum, event, time.Now()); err != nil {
		log.Warn().Err(err).Str("ref", ref.String()).Str("event", event).Msg("failed to record history event")
	}
}

// Store lazily ensures and returns the repository handle.
func (e *Engine) Store() (*objectstore.Store, error) {
	if e.store != nil {
		return e.store, nil
	}
	s, err := objectstore.Ensure(e.Layout.RepoDir(), e.Layout.IsUser())
	if err != nil {
		return nil, err
	}
	e.store = s
	return s, nil
}

// ReadActive returns the checksum active for ref, or "" if unset.
func (e *Engine) ReadActive(ref paths.Ref) (string, error) {
	target, err := os.Readlink(e.Layout.ActiveLink(ref))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", storeerr.Wrapf(err, storeerr.IOError, "failed to read active link for %s", ref)
	}
	return target, nil
}

func (e *Engine) setActive(ref paths.Ref, checksum string) error {
	link := e.Layout.ActiveLink(ref)

	if checksum == "" {
		if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
			return storeerr.Wrapf(err, storeerr.IOError, "failed to clear active link for %s", ref)
		}
		return nil
	}

	tmp := link + "." + uuid.NewString() + ".tmp"
	if err := os.Symlink(checksum, tmp); err != nil {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to stage active link for %s", ref)
	}
	if err := os.Rename(tmp, link); err != nil {
		_ = os.Remove(tmp)
		return storeerr.Wrapf(err, storeerr.IOError, "failed to activate %s at %s", ref, checksum)
	}
	return nil
}

// Deploy installs ref at checksum (resolving the latest commit from
// origin when checksum is empty), following the steps of the
// deployment lifecycle in order.
func (e *Engine) Deploy(ctx context.Context, ref paths.Ref, checksum, originRemote string) error {
	store, err := e.Store()
	if err != nil {
		return storeerr.Prefix(err, "ensuring repository")
	}

	if checksum == "" {
		resolved, err := store.Resolve(originRemote + ":" + ref.String())
		if err != nil {
			return storeerr.Prefix(err, "resolving "+ref.String())
		}
		checksum = resolved
	} else if !store.HasObject(checksum, objectstore.TypeCommit) {
		if err := e.Pull(ctx, originRemote, ref, checksum); err != nil {
			return err
		}
	}

	checkoutDir := e.Layout.DeployDir(ref, checksum)
	if _, err := os.Stat(checkoutDir); err == nil {
		return storeerr.Newf(storeerr.AlreadyDeployed, "%s at %s is already deployed", ref, checksum)
	}

	checkoutMode := objectstore.CheckoutNone
	if e.Layout.IsUser() {
		checkoutMode = objectstore.CheckoutUser
	}

	commit, err := store.ReadCommit(checksum)
	if err != nil {
		return storeerr.Prefix(err, "reading commit for "+ref.String())
	}
	if err := store.CheckoutTree(commit.RootTree, checkoutDir, checkoutMode); err != nil {
		return storeerr.Prefix(err, "checking out "+ref.String())
	}

	if err := os.WriteFile(paths.RefLockPath(checkoutDir), nil, 0644); err != nil {
		return storeerr.Wrap(err, storeerr.IOError, "failed to write deployment lock anchor")
	}

	if err := os.WriteFile(paths.OriginPath(checkoutDir), []byte(originRemote), 0644); err != nil {
		return storeerr.Wrap(err, storeerr.IOError, "failed to write deployment origin")
	}

	exportDir := paths.ExportDir(checkoutDir)
	if _, err := os.Stat(exportDir); err == nil {
		rewriteCtx := exports.RewriteContext{
			SandboxBin: e.Config.SandboxBin,
			AppID:      ref.Name,
			Branch:     ref.Branch,
			Arch:       ref.Arch,
		}
		if err := exports.RewriteDir(rewriteCtx, exportDir); err != nil {
			return storeerr.Prefix(err, "rewriting exports for "+ref.String())
		}
	}

	if err := e.setActive(ref, checksum); err != nil {
		return storeerr.Prefix(err, "activating "+ref.String())
	}

	e.recordHistory(ref, checksum, history.EventDeployed)
	log.Info().Str("ref", ref.String()).Str("checksum", checksum).Msg("deployed")
	return nil
}

// Pull fetches ref (or a specific checksum) from remote into the local
// object store, driving an optional progress handle.
func (e *Engine) Pull(ctx context.Context, originRemote string, ref paths.Ref, checksum string) error {
	store, err := e.Store()
	if err != nil {
		return storeerr.Prefix(err, "ensuring repository")
	}

	baseURL, err := store.RemoteGetURL(originRemote)
	if err != nil {
		return storeerr.Prefix(err, "pulling "+ref.String()+" from "+originRemote)
	}

	reporter := progress.NewConsoleReporter(os.Stdout)
	reporter.Start("pulling " + ref.String())
	defer reporter.Done()

	fetcher := &remote.Fetcher{}

	if checksum == "" {
		resolved, err := store.Resolve(originRemote + ":" + ref.String())
		if err != nil {
			return storeerr.Prefix(err, "pulling "+ref.String()+" from "+originRemote)
		}
		checksum = resolved
	}

	if err := e.pullCommitClosure(ctx, fetcher, store, baseURL, checksum); err != nil {
		return storeerr.Prefix(err, "pulling "+ref.String()+" from "+originRemote)
	}

	if err := store.WriteRef(originRemote+":"+ref.String(), checksum); err != nil {
		return err
	}

	return nil
}

func (e *Engine) pullCommitClosure(ctx context.Context, fetcher *remote.Fetcher, store *objectstore.Store, baseURL, commitChecksum string) error {
	if store.HasObject(commitChecksum, objectstore.TypeCommit) {
		return nil
	}

	select {
	case <-ctx.Done():
		return storeerr.New(storeerr.Cancelled, "pull cancelled")
	default:
	}

	data, err := remote.FetchRemoteObjectCached(ctx, fetcher, e.Cache, baseURL, commitChecksum, string(objectstore.TypeCommit))
	if err != nil {
		return err
	}
	if err := store.WriteObject(commitChecksum, objectstore.TypeCommit, data); err != nil {
		return err
	}

	commit, err := objectstore.DecodeCommit(data)
	if err != nil {
		return err
	}

	return e.pullTreeClosure(ctx, fetcher, store, baseURL, commit.RootTree)
}

func (e *Engine) pullTreeClosure(ctx context.Context, fetcher *remote.Fetcher, store *objectstore.Store, baseURL, treeChecksum string) error {
	if store.HasObject(treeChecksum, objectstore.TypeDirtree) {
		return nil
	}

	select {
	case <-ctx.Done():
		return storeerr.New(storeerr.Cancelled, "pull cancelled")
	default:
	}

	data, err := remote.FetchRemoteObjectCached(ctx, fetcher, e.Cache, baseURL, treeChecksum, string(objectstore.TypeDirtree))
	if err != nil {
		return err
	}
	if err := store.WriteObject(treeChecksum, objectstore.TypeDirtree, data); err != nil {
		return err
	}

	tree, err := objectstore.DecodeDirtree(data)
	if err != nil {
		return err
	}

	for _, f := range tree.Files {
		if store.HasObject(f.Checksum, objectstore.TypeFilez) {
			continue
		}
		fdata, err := remote.FetchRemoteObjectCached(ctx, fetcher, e.Cache, baseURL, f.Checksum, string(objectstore.TypeFilez))
		if err != nil {
			return err
		}
		if err := store.WriteObject(f.Checksum, objectstore.TypeFilez, fdata); err != nil {
			return err
		}
	}

	for _, d := range tree.Dirs {
		if err := e.pullTreeClosure(ctx, fetcher, store, baseURL, d.TreeChecksum); err != nil {
			return err
		}
	}

	return nil
}

// Undeploy removes a ref's checksum, repointing active first if it is
// the one being removed, then quarantining the checkout and deleting
// it immediately when force is true or it is not in use.
func (e *Engine) Undeploy(ref paths.Ref, checksum string, force bool) error {
	checkoutDir := e.Layout.DeployDir(ref, checksum)
	if _, err := os.Stat(checkoutDir); os.IsNotExist(err) {
		return storeerr.Newf(storeerr.AlreadyUndeployed, "%s version %s already undeployed", ref, checksum)
	}

	active, err := e.ReadActive(ref)
	if err != nil {
		return err
	}
	if active == checksum {
		deployed, err := e.ListDeployed(ref)
		if err != nil {
			return err
		}

		var next string
		for _, c := range deployed {
			if c != checksum {
				next = c
				break
			}
		}
		if err := e.setActive(ref, next); err != nil {
			return storeerr.Prefix(err, "repointing active for "+ref.String())
		}
	}

	if err := paths.EnsureDir(e.Layout.RemovedDir()); err != nil {
		return err
	}

	tmpName := uuid.NewString() + "-" + checksum
	quarantined := filepath.Join(e.Layout.RemovedDir(), tmpName)

	if err := os.Rename(checkoutDir, quarantined); err != nil {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to quarantine %s", ref)
	}

	locked, err := lock.IsLocked(paths.RefLockPath(quarantined))
	if err != nil {
		log.Warn().Err(err).Str("ref", ref.String()).Msg("failed to probe lock before deleting quarantined checkout")
		locked = true
	}

	if force || !locked {
		if err := os.RemoveAll(quarantined); err != nil {
			log.Warn().Err(err).Str("path", quarantined).Msg("unable to remove old checkout")
		}
	}

	e.recordHistory(ref, checksum, history.EventUndeployed)
	log.Info().Str("ref", ref.String()).Str("checksum", checksum).Msg("undeployed")
	return nil
}

// CleanupRemoved deletes every quarantined checkout under .removed/
// that is not currently locked. A missing .removed/ directory is not
// an error.
func (e *Engine) CleanupRemoved() error {
	entries, err := os.ReadDir(e.Layout.RemovedDir())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return storeerr.Wrap(err, storeerr.IOError, "failed to list quarantine directory")
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(e.Layout.RemovedDir(), entry.Name())

		locked, err := lock.IsLocked(paths.RefLockPath(path))
		if err != nil || locked {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("unable to remove old checkout")
		}
	}

	return nil
}

// Prune invokes the object store's refs-only prune and reports counts
// and freed bytes.
func (e *Engine) Prune() (objectstore.PruneResult, error) {
	store, err := e.Store()
	if err != nil {
		return objectstore.PruneResult{}, storeerr.Prefix(err, "ensuring repository")
	}
	return store.Prune()
}

// ListDeployed enumerates deploy_base and returns entries whose name is
// 64 hex chars and which are directories. A non-existent base yields an
// empty list, not an error.
func (e *Engine) ListDeployed(ref paths.Ref) ([]string, error) {
	dir := e.Layout.BranchDir(ref.Kind, ref.Name, ref.Arch, ref.Branch)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storeerr.Wrapf(err, storeerr.IOError, "failed to list deployed checksums for %s", ref)
	}

	var checksums []string
	for _, entry := range entries {
		if entry.IsDir() && paths.IsChecksum(entry.Name()) {
			checksums = append(checksums, entry.Name())
		}
	}
	sort.Strings(checksums)
	return checksums, nil
}

// ListRefsForName enumerates kind/name/ two levels deep (arch, then
// branch), skipping the legacy "data" carve-out, returning sorted
// kind/name/arch/branch strings.
func (e *Engine) ListRefsForName(kind paths.Kind, name string) ([]string, error) {
	dir := e.Layout.NameDir(kind, name)
	archEntries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storeerr.Wrapf(err, storeerr.IOError, "failed to list archs for %s/%s", kind, name)
	}

	var refs []string
	for _, archEntry := range archEntries {
		arch := archEntry.Name()
		if !archEntry.IsDir() || arch == "data" {
			continue
		}

		branchEntries, err := os.ReadDir(filepath.Join(dir, arch))
		if err != nil {
			return nil, storeerr.Wrapf(err, storeerr.IOError, "failed to list branches for %s/%s/%s", kind, name, arch)
		}
		for _, branchEntry := range branchEntries {
			if branchEntry.IsDir() {
				refs = append(refs, strings.Join([]string{string(kind), name, arch, branchEntry.Name()}, "/"))
			}
		}
	}

	sort.Strings(refs)
	return refs, nil
}

// ListRefs enumerates kind/ for every name, returning every ref sorted.
func (e *Engine) ListRefs(kind paths.Kind) ([]string, error) {
	dir := e.Layout.KindDir(kind)
	nameEntries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storeerr.Wrapf(err, storeerr.IOError, "failed to list names for %s", kind)
	}

	var refs []string
	for _, nameEntry := range nameEntries {
		if !nameEntry.IsDir() {
			continue
		}
		subRefs, err := e.ListRefsForName(kind, nameEntry.Name())
		if err != nil {
			return nil, err
		}
		refs = append(refs, subRefs...)
	}

	sort.Strings(refs)
	return refs, nil
}

// MakeCurrent points {name}/current at arch/branch, replacing any
// previous target.
func (e *Engine) MakeCurrent(name, arch, branch string) error {
	link := e.Layout.CurrentLink(name)
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to clear current link for %s", name)
	}
	if err := os.Symlink(filepath.Join(arch, branch), link); err != nil {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to set current link for %s", name)
	}
	return nil
}

// DropCurrent removes {name}/current if present.
func (e *Engine) DropCurrent(name string) error {
	if err := os.Remove(e.Layout.CurrentLink(name)); err != nil && !os.IsNotExist(err) {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to drop current link for %s", name)
	}
	return nil
}

// CurrentRef resolves {name}/current to the ref string it names
// (app/{name}/{arch}/{branch}), or "" if nothing is current.
func (e *Engine) CurrentRef(name string) (string, error) {
	target, err := os.Readlink(e.Layout.CurrentLink(name))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", storeerr.Wrapf(err, storeerr.IOError, "failed to read current link for %s", name)
	}
	return string(paths.KindApp) + "/" + name + "/" + filepath.ToSlash(target), nil
}

// GetIfDeployed returns ref's deploy directory for checksum, or ""
// without error if it is not deployed.
func (e *Engine) GetIfDeployed(ref paths.Ref, checksum string) (string, error) {
	dir := e.Layout.DeployDir(ref, checksum)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", storeerr.Wrapf(err, storeerr.IOError, "failed to stat %s", ref)
	}
	return dir, nil
}
