package objectstore

import (
	"os"
	"path/filepath"

	"github.com/abhijitnavale/flatpak/pkg/logging"
	"github.com/abhijitnavale/flatpak/pkg/storeerr"
)

var log = logging.GetLogger("objectstore")

// RepoMode mirrors the two on-disk repository modes a real
// content-addressed store supports: bare-user preserves no privileged
// metadata and is used for per-user installations, bare is used for
// system-wide ones.
type RepoMode string

const (
	ModeBareUser RepoMode = "bare-user"
	ModeBare     RepoMode = "bare"
)

// CheckoutMode selects what a checkout preserves from the calling
// environment.
type CheckoutMode string

const (
	CheckoutUser CheckoutMode = "user"
	CheckoutNone CheckoutMode = "none"
)

// Store wraps one on-disk repository rooted at dir.
type Store struct {
	dir  string
	mode RepoMode
}

// Ensure creates the repository directory if missing, opening it if
// present. On create failure the partially created directory is
// removed before returning.
func Ensure(dir string, isUser bool) (*Store, error) {
	mode := ModeBare
	if isUser {
		mode = ModeBareUser
	}

	if _, err := os.Stat(dir); err == nil {
		return open(dir, mode)
	} else if !os.IsNotExist(err) {
		return nil, storeerr.Wrapf(err, storeerr.IOError, "failed to stat repository %s", dir)
	}

	if err := create(dir, mode); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	log.Info().Str("dir", dir).Str("mode", string(mode)).Msg("repository created")
	return &Store{dir: dir, mode: mode}, nil
}

func create(dir string, mode RepoMode) error {
	for _, sub := range []string{"objects", "refs/heads", "refs/remotes", "tmp"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return storeerr.Wrapf(err, storeerr.IOError, "failed to create repository layout under %s", dir)
		}
	}
	return writeConfig(dir, mode, nil)
}

func open(dir string, fallbackMode RepoMode) (*Store, error) {
	mode, err := readConfigMode(dir)
	if err != nil {
		mode = fallbackMode
	}
	log.Debug().Str("dir", dir).Str("mode", string(mode)).Msg("repository opened")
	return &Store{dir: dir, mode: mode}, nil
}

// Dir returns the repository root directory.
func (s *Store) Dir() string { return s.dir }

// Mode returns the repository's mode (bare or bare-user).
func (s *Store) Mode() RepoMode { return s.mode }

func (s *Store) objectPath(checksum string, typ ObjectType) string {
	if len(checksum) < 2 {
		return filepath.Join(s.dir, "objects", checksum+"."+string(typ))
	}
	return filepath.Join(s.dir, "objects", checksum[:2], checksum[2:]+"."+string(typ))
}

// HasObject reports whether an object is present locally.
func (s *Store) HasObject(checksum string, typ ObjectType) bool {
	_, err := os.Stat(s.objectPath(checksum, typ))
	return err == nil
}

// WriteObject stores raw wire-format bytes under the checksum's
// canonical path, creating the fan-out directory as needed.
func (s *Store) WriteObject(checksum string, typ ObjectType, data []byte) error {
	path := s.objectPath(checksum, typ)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to create object directory for %s", checksum)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to write object %s.%s", checksum, typ)
	}
	return nil
}

// ReadObject returns the raw wire-format bytes of a local object.
func (s *Store) ReadObject(checksum string, typ ObjectType) ([]byte, error) {
	data, err := os.ReadFile(s.objectPath(checksum, typ))
	if os.IsNotExist(err) {
		return nil, storeerr.Newf(storeerr.NotFound, "object %s.%s not found locally", checksum, typ)
	}
	if err != nil {
		return nil, storeerr.Wrapf(err, storeerr.IOError, "failed to read object %s.%s", checksum, typ)
	}
	return data, nil
}

func refPath(dir, ref string) string {
	return filepath.Join(dir, "refs", "heads", filepath.FromSlash(ref))
}

// Resolve translates a symbolic ref to a checksum, failing with
// *not-found* if the ref is not known locally.
func (s *Store) Resolve(ref string) (string, error) {
	data, err := os.ReadFile(refPath(s.dir, ref))
	if os.IsNotExist(err) {
		return "", storeerr.Newf(storeerr.NotFound, "ref %s not found", ref)
	}
	if err != nil {
		return "", storeerr.Wrapf(err, storeerr.IOError, "failed to resolve ref %s", ref)
	}
	return string(data), nil
}

// WriteRef records that ref now points at checksum.
func (s *Store) WriteRef(ref, checksum string) error {
	path := refPath(s.dir, ref)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to create ref directory for %s", ref)
	}
	if err := os.WriteFile(path, []byte(checksum), 0644); err != nil {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to write ref %s", ref)
	}
	return nil
}

// ReadCommit opens the commit object named by checksum, failing with
// *not-found* if absent or *parse-error* if malformed.
func (s *Store) ReadCommit(checksum string) (Commit, error) {
	data, err := s.ReadObject(checksum, TypeCommit)
	if err != nil {
		return Commit{}, err
	}
	return DecodeCommit(data)
}

// ReadDirtree opens the dirtree object named by checksum.
func (s *Store) ReadDirtree(checksum string) (Dirtree, error) {
	data, err := s.ReadObject(checksum, TypeDirtree)
	if err != nil {
		return Dirtree{}, err
	}
	return DecodeDirtree(data)
}
