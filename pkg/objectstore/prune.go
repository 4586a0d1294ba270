package objectstore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/abhijitnavale/flatpak/pkg/storeerr"
)

// PruneResult reports a prune's effect.
type PruneResult struct {
	TotalObjects  int
	PrunedObjects int
	FreedBytes    int64
}

// Prune removes objects unreferenced by any ref, refs-only: reachability
// is computed by walking every ref's commit, its root tree, and every
// transitively reachable dirtree/filez checksum.
func (s *Store) Prune() (PruneResult, error) {
	reachable, err := s.reachableObjects()
	if err != nil {
		return PruneResult{}, err
	}

	objectsDir := filepath.Join(s.dir, "objects")
	var result PruneResult

	err = filepath.Walk(objectsDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}

		result.TotalObjects++
		checksum, ok := checksumFromObjectPath(objectsDir, path)
		if !ok || reachable[checksum] {
			return nil
		}

		result.FreedBytes += info.Size()
		result.PrunedObjects++
		return os.Remove(path)
	})
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return result, storeerr.Wrap(err, storeerr.IOError, "failed to prune objects")
	}

	return result, nil
}

func checksumFromObjectPath(objectsDir, path string) (string, bool) {
	rel, err := filepath.Rel(objectsDir, path)
	if err != nil {
		return "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 || len(parts[0]) != 2 {
		return "", false
	}
	name := parts[1]
	if dot := strings.LastIndex(name, "."); dot >= 0 {
		name = name[:dot]
	}
	return parts[0] + name, true
}

func (s *Store) reachableObjects() (map[string]bool, error) {
	reachable := map[string]bool{}

	headsDir := filepath.Join(s.dir, "refs", "heads")
	err := filepath.Walk(headsDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return s.markReachable(string(data), reachable)
	})
	if err != nil {
		if os.IsNotExist(err) {
			return reachable, nil
		}
		return nil, storeerr.Wrap(err, storeerr.IOError, "failed to walk refs while pruning")
	}

	return reachable, nil
}

func (s *Store) markReachable(commitChecksum string, reachable map[string]bool) error {
	if reachable[commitChecksum] {
		return nil
	}
	reachable[commitChecksum] = true

	commit, err := s.ReadCommit(commitChecksum)
	if err != nil {
		return nil // a dangling ref is swept by the next pull, not a prune failure
	}

	reachable[commit.RootTree] = true
	if commit.RootMetadata != "" {
		reachable[commit.RootMetadata] = true
	}
	return s.markDirtreeReachable(commit.RootTree, reachable)
}

func (s *Store) markDirtreeReachable(checksum string, reachable map[string]bool) error {
	tree, err := s.ReadDirtree(checksum)
	if err != nil {
		return nil
	}

	for _, f := range tree.Files {
		reachable[f.Checksum] = true
	}
	for _, d := range tree.Dirs {
		if reachable[d.TreeChecksum] {
			continue
		}
		reachable[d.TreeChecksum] = true
		if d.MetaChecksum != "" {
			reachable[d.MetaChecksum] = true
		}
		if err := s.markDirtreeReachable(d.TreeChecksum, reachable); err != nil {
			return err
		}
	}
	return nil
}
