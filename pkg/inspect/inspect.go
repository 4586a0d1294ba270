// Package inspect loads an already-deployed ref's metadata and
// overrides context without touching the object store, the read
// path a running sandbox consults at launch. It is written against
// the types.FS abstraction rather than the os package directly, so it
// can be exercised against an in-memory filesystem.
package inspect

import (
	"path/filepath"

	"gopkg.in/ini.v1"

	"github.com/abhijitnavale/flatpak/pkg/overrides"
	"github.com/abhijitnavale/flatpak/pkg/paths"
	"github.com/abhijitnavale/flatpak/pkg/storeerr"
	"github.com/abhijitnavale/flatpak/pkg/types"
)

// Deployment is a loaded, already-installed ref: its on-disk location,
// parsed metadata, and (for apps) merged system+user override context.
type Deployment struct {
	Ref       paths.Ref
	Checksum  string
	Dir       string
	Metadata  *ini.File
	Overrides *ini.File
}

// FilesDir is the deployment's files/ subtree, the sandbox's root.
func (d *Deployment) FilesDir() string {
	return paths.FilesDir(d.Dir)
}

// Inspector loads deployments for one installation root.
type Inspector struct {
	fs           types.FS
	SystemLayout *paths.Layout
	UserLayout   *paths.Layout
	Cache        *OverrideCache
}

// New builds an Inspector. systemLayout may be nil when only a
// per-user installation is being inspected; userLayout may be nil for
// the reverse. At least one must be non-nil. cache may be nil, in
// which case merged overrides are recomputed on every LoadDeployed.
func New(fs types.FS, systemLayout, userLayout *paths.Layout, cache *OverrideCache) *Inspector {
	return &Inspector{fs: fs, SystemLayout: systemLayout, UserLayout: userLayout, Cache: cache}
}

// resolveChecksum follows active/ when checksum is empty.
func resolveChecksum(fs types.FS, layout *paths.Layout, ref paths.Ref, checksum string) (string, error) {
	if checksum != "" {
		return checksum, nil
	}
	target, err := fs.Readlink(layout.ActiveLink(ref))
	if err != nil {
		return "", storeerr.Newf(storeerr.NotDeployed, "%s not installed", ref)
	}
	return target, nil
}

// LoadDeployed resolves ref (optionally pinned to checksum) against
// layout, parses its metadata keyfile, and for apps merges system and
// user overrides into a single context.
func (insp *Inspector) LoadDeployed(layout *paths.Layout, ref paths.Ref, checksum string) (*Deployment, error) {
	resolved, err := resolveChecksum(insp.fs, layout, ref, checksum)
	if err != nil {
		return nil, err
	}

	dir := layout.DeployDir(ref, resolved)
	if _, err := insp.fs.Stat(dir); err != nil {
		return nil, storeerr.Newf(storeerr.NotDeployed, "%s not installed", ref)
	}

	metadataPath := paths.MetadataPath(dir)
	contents, err := insp.fs.ReadFile(metadataPath)
	if err != nil {
		return nil, storeerr.Wrapf(err, storeerr.IOError, "failed to read metadata for %s", ref)
	}

	metadata, err := ini.Load(contents)
	if err != nil {
		return nil, storeerr.Wrapf(err, storeerr.ParseError, "failed to parse metadata for %s", ref)
	}

	deployment := &Deployment{Ref: ref, Checksum: resolved, Dir: dir, Metadata: metadata}

	if ref.Kind == paths.KindApp {
		merged, err := insp.mergedOverrides(ref.Name)
		if err != nil {
			return nil, err
		}
		deployment.Overrides = merged
	}

	return deployment, nil
}

// mergedOverrides layers the user override keyfile over the system
// one, mirroring xdg_app_load_override_file's precedence. Results are
// memoized in insp.Cache, keyed by appID, until a watched overrides
// directory reports a change to that appID's file.
func (insp *Inspector) mergedOverrides(appID string) (*ini.File, error) {
	if insp.Cache != nil {
		if cached, ok := insp.Cache.get(appID); ok {
			return cached, nil
		}
	}

	base := ini.Empty()
	if insp.SystemLayout != nil {
		systemFile, err := insp.loadOverride(insp.SystemLayout, appID)
		if err != nil {
			return nil, err
		}
		base = systemFile
	}

	if insp.UserLayout != nil {
		userFile, err := insp.loadOverride(insp.UserLayout, appID)
		if err != nil {
			return nil, err
		}
		base = overrides.Merge(base, userFile)
	}

	if insp.Cache != nil {
		insp.Cache.put(appID, base)
	}

	return base, nil
}

func (insp *Inspector) loadOverride(layout *paths.Layout, appID string) (*ini.File, error) {
	path := layout.OverridePath(appID)
	contents, err := insp.fs.ReadFile(path)
	if err != nil {
		return ini.Empty(), nil
	}
	f, err := ini.Load(contents)
	if err != nil {
		return nil, storeerr.Wrapf(err, storeerr.ParseError, "failed to parse overrides at %s", filepath.Base(path))
	}
	return f, nil
}
