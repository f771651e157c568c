// Package assets handles animation asset loading and caching.
package assets

import (
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Faultbox/midgard-anim/internal/engine/loader"
)

// Manager resolves rig names against search paths and shares every loaded
// Asset between callers. Assets are read-only after loading, so one skeleton
// and clip set serves any number of animators.
type Manager struct {
	searchPaths []string
	cache       *Cache
	loads       singleflight.Group
	mu          sync.RWMutex
}

// NewManager creates a new asset manager.
func NewManager(searchPaths ...string) *Manager {
	m := &Manager{cache: NewCache()}
	for _, p := range searchPaths {
		m.AddSearchPath(p)
	}
	return m
}

// AddSearchPath adds a directory to search for relative names.
// Paths are searched in reverse order (last added = highest priority).
func (m *Manager) AddSearchPath(dir string) {
	m.mu.Lock()
	m.searchPaths = append(m.searchPaths, dir)
	m.mu.Unlock()
}

// Load returns the asset for name, loading it on first use. Concurrent
// loads of the same file share one read.
func (m *Manager) Load(name string) (*loader.Asset, error) {
	m.mu.RLock()
	paths := make([]string, len(m.searchPaths))
	for i, p := range m.searchPaths {
		paths[len(paths)-1-i] = p
	}
	m.mu.RUnlock()

	path, err := loader.Find(name, paths)
	if err != nil {
		return nil, err
	}
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}

	if asset, ok := m.cache.Get(key); ok {
		return asset, nil
	}

	v, err, _ := m.loads.Do(key, func() (any, error) {
		if asset, ok := m.cache.Peek(key); ok {
			return asset, nil
		}
		asset, err := loader.Load(path)
		if err != nil {
			return nil, err
		}
		m.cache.Set(key, asset)
		return asset, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*loader.Asset), nil
}

// Stats returns cache statistics.
func (m *Manager) Stats() (hits, misses int) {
	return m.cache.Stats()
}

// Close drops every cached asset.
func (m *Manager) Close() {
	m.cache.Clear()
}

// Cache is a simple in-memory cache for loaded assets.
type Cache struct {
	data map[string]*loader.Asset
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]*loader.Asset),
	}
}

// Get retrieves an item from cache and records a hit or miss.
func (c *Cache) Get(key string) (*loader.Asset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	asset, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return asset, ok
}

// Peek is Get without touching the statistics.
func (c *Cache) Peek(key string) (*loader.Asset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	asset, ok := c.data[key]
	return asset, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, asset *loader.Asset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = asset
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*loader.Asset)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
