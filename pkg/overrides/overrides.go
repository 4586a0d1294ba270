// Package overrides implements the per-app override store: small
// key-value files under an installation's overrides/ directory that a
// sandbox-context schema external to this package interprets.
package overrides

import (
	"bytes"
	"os"

	"gopkg.in/ini.v1"

	"github.com/abhijitnavale/flatpak/pkg/logging"
	"github.com/abhijitnavale/flatpak/pkg/paths"
	"github.com/abhijitnavale/flatpak/pkg/storeerr"
)

var log = logging.GetLogger("overrides")

// Scope selects which installation's override file is read or written.
type Scope struct {
	Layout *paths.Layout
}

// Load reads {base(scope)}/overrides/{appID}. A missing file returns an
// empty, successfully-loaded context rather than an error; a malformed
// file fails with *parse-error*.
func Load(scope Scope, appID string) (*ini.File, error) {
	path := scope.Layout.OverridePath(appID)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ini.Empty(), nil
	}
	if err != nil {
		return nil, storeerr.Wrapf(err, storeerr.IOError, "failed to read override for %s", appID)
	}

	f, err := ini.Load(data)
	if err != nil {
		return nil, storeerr.Wrapf(err, storeerr.ParseError, "malformed override file for %s", appID)
	}

	log.Debug().Str("app_id", appID).Str("path", path).Msg("override loaded")
	return f, nil
}

// Save ensures the overrides directory exists (mode 0755) and writes
// keyfile to {base(scope)}/overrides/{appID}, failing with *io-error* on
// any underlying failure.
func Save(scope Scope, keyfile *ini.File, appID string) error {
	if err := paths.EnsureDir(scope.Layout.OverridesDir()); err != nil {
		return err
	}

	var buf bytes.Buffer
	if _, err := keyfile.WriteTo(&buf); err != nil {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to serialize override for %s", appID)
	}

	path := scope.Layout.OverridePath(appID)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to write override for %s", appID)
	}

	log.Debug().Str("app_id", appID).Str("path", path).Msg("override saved")
	return nil
}

// Merge layers override on top of base: every key present in override
// replaces the same group/key in base, matching the system-then-user
// precedence the Deploy Inspector applies.
func Merge(base, override *ini.File) *ini.File {
	merged := ini.Empty()

	for _, src := range []*ini.File{base, override} {
		if src == nil {
			continue
		}
		for _, section := range src.Sections() {
			dst, _ := merged.NewSection(section.Name())
			for _, key := range section.Keys() {
				dst.NewKey(key.Name(), key.Value())
			}
		}
	}

	return merged
}
