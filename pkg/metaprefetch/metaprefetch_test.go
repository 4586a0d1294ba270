package metaprefetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhijitnavale/flatpak/pkg/metaprefetch"
	"github.com/abhijitnavale/flatpak/pkg/objectstore"
	"github.com/abhijitnavale/flatpak/pkg/remote"
)

func TestFetchWalksCommitThenTreeThenMetadata(t *testing.T) {
	metadataContent := []byte("[Application]\nname=org.x.App\n")
	filez, err := objectstore.EncodeFilez(nil, metadataContent)
	require.NoError(t, err)
	metadataChecksum := objectstore.Checksum(filez)

	tree := objectstore.EncodeDirtree(objectstore.Dirtree{
		Files: []objectstore.FileEntry{{Name: "metadata", Checksum: metadataChecksum}},
	})
	treeChecksum := objectstore.Checksum(tree)

	commit := objectstore.EncodeCommit(objectstore.Commit{RootTree: treeChecksum})
	commitChecksum := objectstore.Checksum(commit)

	objects := map[string][]byte{
		shardedObjectPath(commitChecksum, "commit"):  commit,
		shardedObjectPath(treeChecksum, "dirtree"):   tree,
		shardedObjectPath(metadataChecksum, "filez"): filez,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	}))
	defer server.Close()

	fetcher := &remote.Fetcher{}
	got, err := metaprefetch.Fetch(context.Background(), fetcher, nil, server.URL, commitChecksum)
	require.NoError(t, err)
	assert.Equal(t, metadataContent, got)
}

func shardedObjectPath(checksum, typ string) string {
	return "/objects/" + checksum[:2] + "/" + checksum[2:] + "." + typ
}

func TestFetchMissingMetadataEntryIsNotFound(t *testing.T) {
	tree := objectstore.EncodeDirtree(objectstore.Dirtree{})
	treeChecksum := objectstore.Checksum(tree)
	commit := objectstore.EncodeCommit(objectstore.Commit{RootTree: treeChecksum})
	commitChecksum := objectstore.Checksum(commit)

	objects := map[string][]byte{
		shardedObjectPath(commitChecksum, "commit"): commit,
		shardedObjectPath(treeChecksum, "dirtree"):  tree,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	}))
	defer server.Close()

	fetcher := &remote.Fetcher{}
	_, err := metaprefetch.Fetch(context.Background(), fetcher, nil, server.URL, commitChecksum)
	assert.Error(t, err)
}
