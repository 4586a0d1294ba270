// Package paths provides centralized, pure path handling for the
// installation directory manager: mapping refs and app ids to on-disk
// locations under a configurable base directory, and locating the
// per-user installation root via XDG and the system one at a fixed
// default (both overridable by environment variables).
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/abhijitnavale/flatpak/pkg/storeerr"
)

// Default system-wide installation root. Mirrors the fixed location the
// original C implementation hardcoded; unlike the per-user root it is
// not subject to XDG_DATA_HOME.
const DefaultSystemRoot = "/var/lib/flatpak"

// userDataSubdir names the per-user installation subdirectory under
// XDG_DATA_HOME.
const userDataSubdir = "flatpak"

// EnvUserDataDir overrides the per-user installation root.
const EnvUserDataDir = "FLATPAK_USER_DIR"

// EnvSystemDataDir overrides the system installation root.
const EnvSystemDataDir = "FLATPAK_SYSTEM_DIR"

// Layout maps logical identifiers onto filesystem paths under one
// installation root. It owns no state beyond the root and whether the
// installation is a per-user one; every method is a pure function of
// its arguments.
type Layout struct {
	root   string
	isUser bool
}

// NewLayout builds a Layout rooted at root. isUser selects user-mode
// checkout semantics (preserve calling uid/gid, bare-user repo mode)
// versus system-mode.
func NewLayout(root string, isUser bool) *Layout {
	return &Layout{root: filepath.Clean(root), isUser: isUser}
}

// NewUserLayout resolves the per-user installation root from
// FLATPAK_USER_DIR, falling back to XDG_DATA_HOME/flatpak.
func NewUserLayout() *Layout {
	if dir := os.Getenv(EnvUserDataDir); dir != "" {
		return NewLayout(dir, true)
	}
	return NewLayout(filepath.Join(xdg.DataHome, userDataSubdir), true)
}

// NewSystemLayout resolves the system-wide installation root from
// FLATPAK_SYSTEM_DIR, falling back to DefaultSystemRoot.
func NewSystemLayout() *Layout {
	if dir := os.Getenv(EnvSystemDataDir); dir != "" {
		return NewLayout(dir, false)
	}
	return NewLayout(DefaultSystemRoot, false)
}

// Root returns the installation root directory.
func (l *Layout) Root() string { return l.root }

// IsUser reports whether this is a per-user installation.
func (l *Layout) IsUser() bool { return l.isUser }

// RepoDir is the content-addressed object store directory.
func (l *Layout) RepoDir() string { return filepath.Join(l.root, "repo") }

// ExportsDir is the installation-wide published-exports tree.
func (l *Layout) ExportsDir() string { return filepath.Join(l.root, "exports") }

// OverridesDir holds per-app override files.
func (l *Layout) OverridesDir() string { return filepath.Join(l.root, "overrides") }

// RemovedDir is the quarantine directory for undeployed-but-locked checkouts.
func (l *Layout) RemovedDir() string { return filepath.Join(l.root, ".removed") }

// OverridePath is the per-app override file path.
func (l *Layout) OverridePath(appID string) string {
	return filepath.Join(l.OverridesDir(), appID)
}

// KindDir is the top-level tree for one deployment kind (app or runtime).
func (l *Layout) KindDir(kind Kind) string {
	return filepath.Join(l.root, string(kind))
}

// NameDir is the tree for all arch/branch combinations of one name.
func (l *Layout) NameDir(kind Kind, name string) string {
	return filepath.Join(l.KindDir(kind), name)
}

// ArchDir is the tree for all branches of one (kind, name, arch).
func (l *Layout) ArchDir(kind Kind, name, arch string) string {
	return filepath.Join(l.NameDir(kind, name), arch)
}

// BranchDir is the tree holding every deployed checksum of a ref, plus
// its active symlink.
func (l *Layout) BranchDir(kind Kind, name, arch, branch string) string {
	return filepath.Join(l.ArchDir(kind, name, arch), branch)
}

// DeployDir returns the on-disk directory a ref's checksum is deployed
// into: base/kind/name/arch/branch/checksum, a literal path join.
func (l *Layout) DeployDir(ref Ref, checksum string) string {
	return filepath.Join(l.BranchDir(ref.Kind, ref.Name, ref.Arch, ref.Branch), checksum)
}

// ActiveLink is the symlink naming which checksum of a ref is active.
func (l *Layout) ActiveLink(ref Ref) string {
	return filepath.Join(l.BranchDir(ref.Kind, ref.Name, ref.Arch, ref.Branch), "active")
}

// CurrentLink is the per-app symlink to the arch/branch pair whose
// exports are published. Only meaningful for KindApp.
func (l *Layout) CurrentLink(name string) string {
	return filepath.Join(l.NameDir(KindApp, name), "current")
}

// FilesDir is the application tree inside a deployment.
func FilesDir(deployDir string) string { return filepath.Join(deployDir, "files") }

// RefLockPath is the zero-byte lock anchor inside a deployment.
func RefLockPath(deployDir string) string { return filepath.Join(FilesDir(deployDir), ".ref") }

// MetadataPath is the deployment's key-value config file.
func MetadataPath(deployDir string) string { return filepath.Join(deployDir, "metadata") }

// ExportDir is the optional subtree of exportable desktop/service/icon
// files inside a deployment.
func ExportDir(deployDir string) string { return filepath.Join(deployDir, "export") }

// OriginPath names the remote a deployment was installed from.
func OriginPath(deployDir string) string { return filepath.Join(deployDir, "origin") }

// EnsureDir creates dir (and parents) with mode 0755 if missing.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to create directory %s", dir)
	}
	return nil
}
