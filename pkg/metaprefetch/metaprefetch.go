// Package metaprefetch obtains only the metadata file for a ref's
// commit, without driving a full pull through the Object Store
// Adapter: fetch and parse the commit, fetch and parse its root tree,
// find the metadata entry, fetch and inflate that one file object.
package metaprefetch

import (
	"context"

	"github.com/abhijitnavale/flatpak/pkg/logging"
	"github.com/abhijitnavale/flatpak/pkg/objectstore"
	"github.com/abhijitnavale/flatpak/pkg/remote"
	"github.com/abhijitnavale/flatpak/pkg/storeerr"
)

var log = logging.GetLogger("metaprefetch")

const metadataEntryName = "metadata"

// Fetch retrieves and inflates the metadata file for a commit at
// remoteBaseURL, without requiring a local repository at all.
func Fetch(ctx context.Context, fetcher *remote.Fetcher, cache *remote.ObjectCache, remoteBaseURL, commitChecksum string) ([]byte, error) {
	commitData, err := remote.FetchRemoteObjectCached(ctx, fetcher, cache, remoteBaseURL, commitChecksum, string(objectstore.TypeCommit))
	if err != nil {
		return nil, storeerr.Prefix(err, "fetching commit object")
	}

	commit, err := objectstore.DecodeCommit(commitData)
	if err != nil {
		return nil, storeerr.Prefix(err, "parsing commit object")
	}

	treeData, err := remote.FetchRemoteObjectCached(ctx, fetcher, cache, remoteBaseURL, commit.RootTree, string(objectstore.TypeDirtree))
	if err != nil {
		return nil, storeerr.Prefix(err, "fetching root tree object")
	}

	tree, err := objectstore.DecodeDirtree(treeData)
	if err != nil {
		return nil, storeerr.Prefix(err, "parsing root tree object")
	}

	var metadataChecksum string
	for _, f := range tree.Files {
		if f.Name == metadataEntryName {
			metadataChecksum = f.Checksum
			break
		}
	}
	if metadataChecksum == "" {
		return nil, storeerr.Newf(storeerr.NotFound, "commit %s root tree has no %s entry", commitChecksum, metadataEntryName)
	}

	filezData, err := remote.FetchRemoteObjectCached(ctx, fetcher, cache, remoteBaseURL, metadataChecksum, string(objectstore.TypeFilez))
	if err != nil {
		return nil, storeerr.Prefix(err, "fetching metadata file object")
	}

	inflated, err := objectstore.DecodeFilez(filezData)
	if err != nil {
		return nil, storeerr.Prefix(err, "inflating metadata file")
	}

	log.Debug().Str("commit", commitChecksum).Int("bytes", len(inflated)).Msg("metadata prefetched")
	return inflated, nil
}
