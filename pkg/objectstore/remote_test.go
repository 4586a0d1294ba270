package objectstore_test

import (
	"path/filepath"
	"testing"

	"github.com/abhijitnavale/flatpak/pkg/objectstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRemoteThenListAndGetURL(t *testing.T) {
	s, err := objectstore.Ensure(filepath.Join(t.TempDir(), "repo"), true)
	require.NoError(t, err)

	require.NoError(t, s.AddRemote("flathub", "https://dl.flathub.org/repo"))

	names, err := s.RemoteList()
	require.NoError(t, err)
	assert.Contains(t, names, "flathub")

	url, err := s.RemoteGetURL("flathub")
	require.NoError(t, err)
	assert.Equal(t, "https://dl.flathub.org/repo", url)
}

func TestRemoteGetURLUnknownRemoteIsNotFound(t *testing.T) {
	s, err := objectstore.Ensure(filepath.Join(t.TempDir(), "repo"), true)
	require.NoError(t, err)

	_, err = s.RemoteGetURL("nope")
	assert.Error(t, err)
}
