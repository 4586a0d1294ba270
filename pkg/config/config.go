// Package config loads the ambient, non-domain-format settings of the
// installation directory manager: paths and names that the original C
// implementation hardcoded as compile-time constants (the sandbox launch
// binary, the privileged helper binary, the trigger directory, the
// default remote). It is layered the way the teacher project layers its
// own configuration: embedded defaults, then an optional TOML file on
// disk, via koanf.
package config

import (
	_ "embed"
	"os"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/abhijitnavale/flatpak/pkg/logging"
	"github.com/abhijitnavale/flatpak/pkg/storeerr"
)

var log = logging.GetLogger("config")

//go:embed defaults.toml
var defaults []byte

// Config holds the installer's ambient settings.
type Config struct {
	// SandboxBin is the launcher binary Exec= lines are rewritten to invoke.
	SandboxBin string `koanf:"sandbox_bin"`
	// HelperBin is the privileged helper invoked to run export triggers.
	HelperBin string `koanf:"helper_bin"`
	// TriggerDir is where post-export trigger scripts live.
	TriggerDir string `koanf:"trigger_dir"`
	// DefaultRemote is the configured default remote name. The engine
	// does not read it: Deploy and Pull take the remote as an argument.
	DefaultRemote string `koanf:"default_remote"`
}

// Load reads embedded defaults, then overlays an optional TOML file at
// path (if it exists; a missing file is not an error — mirrors the
// teacher's GetSimpleRootConfig layering).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaults), toml.Parser()); err != nil {
		return nil, storeerr.Wrap(err, storeerr.ParseError, "failed to load default config")
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, storeerr.Wrapf(err, storeerr.ParseError, "failed to load config from %s", path)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, storeerr.Wrap(err, storeerr.ParseError, "failed to unmarshal config")
	}

	log.Debug().
		Str("sandbox_bin", cfg.SandboxBin).
		Str("helper_bin", cfg.HelperBin).
		Str("trigger_dir", cfg.TriggerDir).
		Msg("configuration loaded")

	return &cfg, nil
}
