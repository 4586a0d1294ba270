package exports

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/abhijitnavale/flatpak/pkg/storeerr"
)

// MirrorDir mirrors source into destination as a parallel tree where
// every regular file becomes a relative symlink pointing at
// symlinkPrefix/<path-from-source-root>. Pre-existing entries at the
// same name are replaced.
func MirrorDir(source, destination, symlinkPrefix string) error {
	if err := os.MkdirAll(destination, 0755); err != nil {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to create exports directory %s", destination)
	}
	return mirrorDir(source, destination, symlinkPrefix)
}

func mirrorDir(source, destination, symlinkPrefix string) error {
	entries, err := os.ReadDir(source)
	if err != nil {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to list export source %s", source)
	}

	if err := os.MkdirAll(destination, 0755); err != nil {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to create directory %s", destination)
	}

	for _, entry := range entries {
		name := entry.Name()
		info, err := entry.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return storeerr.Wrapf(err, storeerr.IOError, "failed to stat %s", filepath.Join(source, name))
		}

		if info.IsDir() {
			childPrefix := filepath.Join("..", symlinkPrefix, name)
			if err := mirrorDir(filepath.Join(source, name), filepath.Join(destination, name), childPrefix); err != nil {
				return err
			}
			continue
		}

		if !info.Mode().IsRegular() {
			continue
		}

		target := filepath.Join(symlinkPrefix, name)
		linkPath := filepath.Join(destination, name)

		if err := os.Remove(linkPath); err != nil && !os.IsNotExist(err) {
			return storeerr.Wrapf(err, storeerr.IOError, "failed to remove existing export entry %s", linkPath)
		}
		if err := os.Symlink(target, linkPath); err != nil {
			return storeerr.Wrapf(err, storeerr.IOError, "failed to symlink export entry %s", linkPath)
		}
	}

	return nil
}

// RemoveDanglingSymlinks sweeps root removing any symlink whose target
// no longer resolves.
func RemoveDanglingSymlinks(root string) error {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to list %s while sweeping dangling symlinks", root)
	}

	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())

		if entry.IsDir() {
			if err := RemoveDanglingSymlinks(path); err != nil {
				return err
			}
			continue
		}

		info, err := os.Lstat(path)
		if err != nil {
			continue
		}
		if info.Mode()&os.ModeSymlink == 0 {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return storeerr.Wrapf(err, storeerr.IOError, "failed to remove dangling symlink %s", path)
			}
		}
	}

	return nil
}

// RunTriggers executes every *.trigger file in triggerDir with
// {helper} -a {base} -e -F /usr {trigger-path}. Trigger failures are
// logged as warnings and swallowed, never propagated.
func RunTriggers(helper, base, triggerDir string) {
	entries, err := os.ReadDir(triggerDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("dir", triggerDir).Msg("failed to list trigger directory")
		}
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".trigger") {
			continue
		}

		triggerPath := filepath.Join(triggerDir, name)
		log.Debug().Str("trigger", name).Msg("running trigger")

		cmd := exec.Command(helper, "-a", base, "-e", "-F", "/usr", triggerPath)
		if out, err := cmd.CombinedOutput(); err != nil {
			log.Warn().Err(err).Str("trigger", name).Str("output", string(out)).Msg("trigger failed")
		}
	}
}
