package main

import (
	"github.com/abhijitnavale/flatpak/pkg/config"
	"github.com/abhijitnavale/flatpak/pkg/engine"
	"github.com/abhijitnavale/flatpak/pkg/history"
	"github.com/abhijitnavale/flatpak/pkg/paths"
)

// buildEngine wires an Engine over the system or per-user installation
// root selected by --user, with its history database opened alongside.
func buildEngine() (*engine.Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	var layout *paths.Layout
	if userMode {
		layout = paths.NewUserLayout()
	} else {
		layout = paths.NewSystemLayout()
	}

	hist, err := history.Open(history.DBPath(layout.Root()))
	if err != nil {
		return nil, err
	}

	return engine.New(layout, cfg, nil, hist), nil
}
