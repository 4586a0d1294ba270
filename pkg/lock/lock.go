// Package lock probes advisory whole-file write locks on a
// deployment's files/.ref anchor, detecting in-use deployments before
// they are removed. The installer never holds these locks itself — it
// only probes: acquire non-blocking, and if acquired, release
// immediately without having observed anyone else holding it.
package lock

import (
	"github.com/gofrs/flock"

	"github.com/abhijitnavale/flatpak/pkg/storeerr"
)

// IsLocked reports whether any other process currently holds a lock on
// path. It never blocks.
func IsLocked(path string) (bool, error) {
	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return false, storeerr.Wrapf(err, storeerr.IOError, "failed to probe lock on %s", path)
	}

	if locked {
		if err := fl.Unlock(); err != nil {
			return false, storeerr.Wrapf(err, storeerr.IOError, "failed to release probe lock on %s", path)
		}
		return false, nil
	}

	return true, nil
}
