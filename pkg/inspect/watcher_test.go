package inspect

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/ini.v1"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverrideCachePutGet(t *testing.T) {
	c := &OverrideCache{entries: make(map[string]*ini.File)}

	_, ok := c.get("org.x.App")
	assert.False(t, ok)

	f := ini.Empty()
	c.put("org.x.App", f)

	got, ok := c.get("org.x.App")
	require.True(t, ok)
	assert.Same(t, f, got)

	c.invalidate("org.x.App")
	_, ok = c.get("org.x.App")
	assert.False(t, ok)
}

func TestNewOverrideCacheInvalidatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "org.x.App")
	require.NoError(t, os.WriteFile(path, []byte("[Context]\n"), 0644))

	c := NewOverrideCache(dir)
	defer c.Close()

	c.put("org.x.App", ini.Empty())
	_, ok := c.get("org.x.App")
	require.True(t, ok)

	require.NoError(t, os.WriteFile(path, []byte("[Context]\nshared=network\n"), 0644))

	require.Eventually(t, func() bool {
		_, ok := c.get("org.x.App")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}
