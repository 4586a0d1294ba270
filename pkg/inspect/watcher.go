package inspect

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/ini.v1"

	"github.com/abhijitnavale/flatpak/pkg/logging"
)

var watcherLog = logging.GetLogger("inspect")

// OverrideCache memoizes loadOverride results per appID, watching the
// override directories for writes/creates/renames/removes and
// evicting the cache entry for whichever file changed. A zero value is
// safe to use uncached (get reports a miss for every lookup and put
// stores nothing).
type OverrideCache struct {
	mu      sync.RWMutex
	entries map[string]*ini.File
	watcher *fsnotify.Watcher
}

// NewOverrideCache builds an OverrideCache and starts a watcher on
// every directory in dirs, invalidating the matching cache entries on
// any filesystem event. Returns a zero-value cache if the watcher
// cannot be started; caching then degrades to always-miss rather than
// failing inspection. A directory that cannot be watched (a missing
// one, for example) is logged and skipped; the other directories stay
// watched.
func NewOverrideCache(dirs ...string) *OverrideCache {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		watcherLog.Warn().Err(err).Msg("failed to start override watcher, caching disabled")
		return &OverrideCache{}
	}

	c := &OverrideCache{entries: make(map[string]*ini.File)}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			watcherLog.Warn().Err(err).Str("dir", dir).Msg("failed to watch overrides directory")
		}
	}
	c.watcher = w

	go c.run()
	return c
}

func (c *OverrideCache) run() {
	for {
		select {
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			c.invalidate(filepath.Base(ev.Name))
		case _, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (c *OverrideCache) invalidate(appID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, appID)
}

func (c *OverrideCache) get(appID string) (*ini.File, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.entries[appID]
	return f, ok
}

func (c *OverrideCache) put(appID string, f *ini.File) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		return
	}
	c.entries[appID] = f
}

// Close stops the underlying watcher, if one was started.
func (c *OverrideCache) Close() error {
	if c.watcher == nil {
		return nil
	}
	return c.watcher.Close()
}
