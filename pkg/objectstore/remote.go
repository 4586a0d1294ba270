package objectstore

import (
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"

	"github.com/abhijitnavale/flatpak/pkg/storeerr"
)

const configFileName = "config"

func configPath(dir string) string { return filepath.Join(dir, configFileName) }

func loadConfig(dir string) (*ini.File, error) {
	data, err := os.ReadFile(configPath(dir))
	if os.IsNotExist(err) {
		return ini.Empty(), nil
	}
	if err != nil {
		return nil, storeerr.Wrapf(err, storeerr.IOError, "failed to read repository config %s", configPath(dir))
	}
	f, err := ini.Load(data)
	if err != nil {
		return nil, storeerr.Wrapf(err, storeerr.ParseError, "malformed repository config %s", configPath(dir))
	}
	return f, nil
}

func writeConfig(dir string, mode RepoMode, remotes map[string]string) error {
	f := ini.Empty()
	core, err := f.NewSection("core")
	if err != nil {
		return storeerr.Wrap(err, storeerr.IOError, "failed to build repository config")
	}
	core.NewKey("mode", string(mode))

	for name, url := range remotes {
		sec, err := f.NewSection("remote \"" + name + "\"")
		if err != nil {
			return storeerr.Wrap(err, storeerr.IOError, "failed to build repository config")
		}
		sec.NewKey("url", url)
	}

	return f.SaveTo(configPath(dir))
}

func readConfigMode(dir string) (RepoMode, error) {
	f, err := loadConfig(dir)
	if err != nil {
		return "", err
	}
	mode := f.Section("core").Key("mode").String()
	if mode == "" {
		return "", storeerr.New(storeerr.NotFound, "repository config has no core.mode")
	}
	return RepoMode(mode), nil
}

// RemoteList returns the configured remote names.
func (s *Store) RemoteList() ([]string, error) {
	f, err := loadConfig(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, sec := range f.Sections() {
		if name, ok := remoteSectionName(sec.Name()); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// RemoteGetURL returns the configured base URL for a remote, failing
// with *not-found* if the remote is unknown.
func (s *Store) RemoteGetURL(remote string) (string, error) {
	f, err := loadConfig(s.dir)
	if err != nil {
		return "", err
	}
	sec, serr := f.GetSection("remote \"" + remote + "\"")
	if serr != nil {
		return "", storeerr.Newf(storeerr.NotFound, "remote %s not configured", remote)
	}
	return sec.Key("url").String(), nil
}

// RemoteConfigGet reads an arbitrary key from a remote's config
// section.
func (s *Store) RemoteConfigGet(remote, key string) (string, error) {
	f, err := loadConfig(s.dir)
	if err != nil {
		return "", err
	}
	sec, serr := f.GetSection("remote \"" + remote + "\"")
	if serr != nil {
		return "", storeerr.Newf(storeerr.NotFound, "remote %s not configured", remote)
	}
	if !sec.HasKey(key) {
		return "", storeerr.Newf(storeerr.NotFound, "remote %s has no key %s", remote, key)
	}
	return sec.Key(key).String(), nil
}

// AddRemote configures a new remote, overwriting any existing entry of
// the same name.
func (s *Store) AddRemote(remote, url string) error {
	f, err := loadConfig(s.dir)
	if err != nil {
		return err
	}
	sec, serr := f.NewSection("remote \"" + remote + "\"")
	if serr != nil {
		return storeerr.Wrap(serr, storeerr.IOError, "failed to add remote")
	}
	sec.NewKey("url", url)
	if err := f.SaveTo(configPath(s.dir)); err != nil {
		return storeerr.Wrap(err, storeerr.IOError, "failed to persist repository config")
	}
	return nil
}

// RemoteListRefs lists the refs this store has last seen advertised by
// remote, read from refs/remotes/{remote}/.
func (s *Store) RemoteListRefs(remote string) ([]string, error) {
	dir := filepath.Join(s.dir, "refs", "remotes", remote)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storeerr.Wrapf(err, storeerr.IOError, "failed to list refs for remote %s", remote)
	}
	var refs []string
	for _, e := range entries {
		if !e.IsDir() {
			refs = append(refs, e.Name())
		}
	}
	return refs, nil
}

func remoteSectionName(section string) (string, bool) {
	const prefix = `remote "`
	const suffix = `"`
	if len(section) > len(prefix)+len(suffix) && section[:len(prefix)] == prefix && section[len(section)-1:] == suffix {
		return section[len(prefix) : len(section)-len(suffix)], true
	}
	return "", false
}
