package exports

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/ini.v1"

	"github.com/abhijitnavale/flatpak/pkg/logging"
	"github.com/abhijitnavale/flatpak/pkg/storeerr"
)

var log = logging.GetLogger("exports")

const (
	keyExec          = "Exec"
	keyTryExec       = "TryExec"
	keyBugzillaInfo  = "X-GNOME-Bugzilla-ExtraInfoScript"
	dbusServiceGroup = "D-BUS Service"
	dbusServiceName  = "Name"
)

// RewriteContext carries the identity under which a ref's exports are
// rewritten.
type RewriteContext struct {
	SandboxBin string
	AppID      string
	Branch     string
	Arch       string
}

// hasNamePrefix tolerates sub-prefix matches: "app" is a prefix of
// "app.desktop" and of "app.Sub.desktop" alike.
func hasNamePrefix(name, appID string) bool {
	return name == appID || strings.HasPrefix(name, appID+".")
}

// RewriteDir recursively walks root, removing files that don't belong
// to ctx.AppID and rewriting every .desktop/.service file found. Each
// basename is processed at most once even if a rewrite recreates a
// file the walk would otherwise revisit.
func RewriteDir(ctx RewriteContext, root string) error {
	visited := map[string]bool{}
	return rewriteDir(ctx, root, visited)
}

func rewriteDir(ctx RewriteContext, dir string, visited map[string]bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to list export directory %s", dir)
	}

	for _, entry := range entries {
		name := entry.Name()
		if visited[name] {
			continue
		}
		visited[name] = true

		path := filepath.Join(dir, name)
		info, err := entry.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return storeerr.Wrapf(err, storeerr.IOError, "failed to stat %s", path)
		}

		switch {
		case info.IsDir():
			if err := rewriteDir(ctx, path, map[string]bool{}); err != nil {
				return err
			}

		case !info.Mode().IsRegular():
			log.Warn().Str("path", path).Msg("not exporting file of unsupported type")
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return storeerr.Wrapf(err, storeerr.IOError, "failed to remove %s", path)
			}

		case !hasNamePrefix(name, ctx.AppID):
			log.Warn().Str("path", path).Str("app_id", ctx.AppID).Msg("non-prefixed filename, removing")
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return storeerr.Wrapf(err, storeerr.IOError, "failed to remove %s", path)
			}

		case strings.HasSuffix(name, ".desktop") || strings.HasSuffix(name, ".service"):
			if err := rewriteKeyfile(ctx, path); err != nil {
				return err
			}

		default:
			log.Warn().Str("path", path).Msg("not exporting file of unsupported type")
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return storeerr.Wrapf(err, storeerr.IOError, "failed to remove %s", path)
			}
		}
	}

	return nil
}

func rewriteKeyfile(ctx RewriteContext, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to read %s", path)
	}

	keyfile, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, data)
	if err != nil {
		return storeerr.Wrapf(err, storeerr.ParseError, "malformed keyfile %s", path)
	}

	name := filepath.Base(path)
	if strings.HasSuffix(name, ".service") {
		expected := strings.TrimSuffix(name, ".service")
		dbusName := keyfile.Section(dbusServiceGroup).Key(dbusServiceName).String()
		if dbusName != expected {
			return storeerr.Newf(storeerr.PolicyViolation, "dbus service file %s has wrong name %q (want %q)", name, dbusName, expected)
		}
	}

	for _, section := range keyfile.Sections() {
		section.DeleteKey(keyTryExec)
		section.DeleteKey(keyBugzillaInfo)

		if section.Name() == ini.DefaultSection && !section.HasKey(keyExec) {
			continue
		}
		oldExec := section.Key(keyExec).String()
		section.Key(keyExec).SetValue(rewriteExec(ctx, oldExec))
	}

	var buf strings.Builder
	if _, err := keyfile.WriteTo(&buf); err != nil {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to serialize %s", path)
	}

	tmpName := fmt.Sprintf(".%s.%s.tmp", name, uuid.NewString())
	tmpPath := filepath.Join(filepath.Dir(path), tmpName)
	if err := os.WriteFile(tmpPath, []byte(buf.String()), 0644); err != nil {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to write temp file for %s", path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return storeerr.Wrapf(err, storeerr.IOError, "failed to rename temp file over %s", path)
	}

	return nil
}

// rewriteExec reconstructs Exec as {sandbox-bin}/launch
// --branch={branch} --arch={arch}[ --command={old-argv0}] {app-id}[
// old-argv[1:]...]. If oldExec fails shell-splitting or yields zero
// tokens, --command= is omitted and only the app id is appended.
func rewriteExec(ctx RewriteContext, oldExec string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s/launch --branch=%s --arch=%s", strings.TrimSuffix(ctx.SandboxBin, "/"), maybeQuote(ctx.Branch), maybeQuote(ctx.Arch))

	argv, err := shellSplit(oldExec)
	if err != nil || len(argv) == 0 {
		fmt.Fprintf(&b, " %s", maybeQuote(ctx.AppID))
		return b.String()
	}

	fmt.Fprintf(&b, " --command=%s", maybeQuote(argv[0]))
	fmt.Fprintf(&b, " %s", maybeQuote(ctx.AppID))
	for _, arg := range argv[1:] {
		fmt.Fprintf(&b, " %s", maybeQuote(arg))
	}

	return b.String()
}
