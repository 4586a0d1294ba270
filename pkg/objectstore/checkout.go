package objectstore

import (
	"os"
	"path/filepath"

	"github.com/abhijitnavale/flatpak/pkg/storeerr"
)

// CheckoutTree materializes the tree rooted at checksum into dest.
// Overwrite policy is none: fails if dest already exists. mode selects
// whether the checkout preserves the calling user's ownership; this
// implementation, built on the standard library's os package, has no
// notion of ownership to preserve either way, so CheckoutUser and
// CheckoutNone behave identically; mode is accepted but not used.
func (s *Store) CheckoutTree(checksum string, dest string, mode CheckoutMode) error {
	if _, err := os.Stat(dest); err == nil {
		return storeerr.Newf(storeerr.AlreadyDeployed, "checkout destination %s already exists", dest)
	} else if !os.IsNotExist(err) {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to stat checkout destination %s", dest)
	}

	tree, err := s.ReadDirtree(checksum)
	if err != nil {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to read tree %s for checkout", checksum)
	}

	if err := os.MkdirAll(dest, 0755); err != nil {
		return storeerr.Wrapf(err, storeerr.IOError, "failed to create checkout directory %s", dest)
	}

	return s.checkoutDirtree(tree, dest)
}

func (s *Store) checkoutDirtree(tree Dirtree, dest string) error {
	for _, f := range tree.Files {
		content, err := s.readFilez(f.Checksum)
		if err != nil {
			return storeerr.Wrapf(err, storeerr.IOError, "failed to checkout file %s", f.Name)
		}
		if err := os.WriteFile(filepath.Join(dest, f.Name), content, 0644); err != nil {
			return storeerr.Wrapf(err, storeerr.IOError, "failed to write checked-out file %s", f.Name)
		}
	}

	for _, d := range tree.Dirs {
		subdir := filepath.Join(dest, d.Name)
		if err := os.MkdirAll(subdir, 0755); err != nil {
			return storeerr.Wrapf(err, storeerr.IOError, "failed to create checkout subdirectory %s", subdir)
		}
		subtree, err := s.ReadDirtree(d.TreeChecksum)
		if err != nil {
			return storeerr.Wrapf(err, storeerr.IOError, "failed to read subtree %s", d.Name)
		}
		if err := s.checkoutDirtree(subtree, subdir); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) readFilez(checksum string) ([]byte, error) {
	data, err := s.ReadObject(checksum, TypeFilez)
	if err != nil {
		return nil, err
	}
	return DecodeFilez(data)
}
