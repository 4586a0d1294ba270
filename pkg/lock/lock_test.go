package lock_test

import (
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhijitnavale/flatpak/pkg/lock"
)

func TestIsLockedFalseWhenUnheld(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ref")

	locked, err := lock.IsLocked(path)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestIsLockedTrueWhenHeldByAnotherHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ref")

	holder := flock.New(path)
	ok, err := holder.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer holder.Unlock()

	locked, err := lock.IsLocked(path)
	require.NoError(t, err)
	assert.True(t, locked)
}
