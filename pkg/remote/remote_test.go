package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/abhijitnavale/flatpak/pkg/remote"
	"github.com/abhijitnavale/flatpak/pkg/storeerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadURIFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "obj.commit")
	require.NoError(t, os.WriteFile(path, []byte("commit-bytes"), 0644))

	f := &remote.Fetcher{}
	data, err := f.LoadURI(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, "commit-bytes", string(data))
}

func TestLoadURIUnsupportedScheme(t *testing.T) {
	f := &remote.Fetcher{}
	_, err := f.LoadURI(context.Background(), "ftp://example.com/x")
	require.Error(t, err)
	assert.Equal(t, storeerr.Unsupported, storeerr.GetCode(err))
}

func TestLoadURIHTTPNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := &remote.Fetcher{}
	_, err := f.LoadURI(context.Background(), server.URL+"/objects/aa/bb.commit")
	require.Error(t, err)
	assert.Equal(t, storeerr.NotFound, storeerr.GetCode(err))
}

func TestLoadURIHTTPServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := &remote.Fetcher{}
	_, err := f.LoadURI(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, storeerr.IOError, storeerr.GetCode(err))
}

func TestFetchRemoteObjectDerivesURL(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte("payload"))
	}))
	defer server.Close()

	f := &remote.Fetcher{}
	data, err := f.FetchRemoteObject(context.Background(), server.URL, "aabbccdd", "commit")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, "/objects/aa/bbccdd.commit", gotPath)
}
