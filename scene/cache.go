package scene

import (
	"container/list"
	"image"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gogpu/arcomp/video"
)

// Default cache configuration constants.
const (
	// DefaultCacheMB is the default decoded-asset budget in megabytes.
	DefaultCacheMB = 256

	bytesPerMB    = 1024 * 1024
	bytesPerPixel = 4
)

// assetKey identifies one version of a file or frame directory on disk,
// plus the playback parameters a sequence was built with.
type assetKey struct {
	path    string
	size    int64
	modTime int64
	fps     float64
	loop    bool
}

// AssetCache keeps decoded images and video sequences across scene
// reloads, so an unchanged asset decodes once and keeps the same value.
// The compositor then also keeps its GPU texture. It is safe for
// concurrent use and evicts least recently used entries over budget.
type AssetCache struct {
	mu      sync.Mutex
	entries map[assetKey]*list.Element
	lru     *list.List // front = most recent
	size    int64
	maxSize int64

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type cacheEntry struct {
	key   assetKey
	value any // image.Image or *video.Sequence
	size  int64
}

// CacheStats contains cache statistics for monitoring.
type CacheStats struct {
	// Size is the current memory usage in bytes.
	Size int64
	// MaxSize is the memory budget in bytes.
	MaxSize int64
	// Entries is the number of cached assets.
	Entries int

	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// NewAssetCache creates a cache with the given budget in megabytes.
// Non-positive values select DefaultCacheMB.
func NewAssetCache(maxSizeMB int) *AssetCache {
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultCacheMB
	}
	return &AssetCache{
		entries: make(map[assetKey]*list.Element),
		lru:     list.New(),
		maxSize: int64(maxSizeMB) * bytesPerMB,
	}
}

func (c *AssetCache) get(key assetKey) (any, bool) {
	c.mu.Lock()
	elem, ok := c.entries[key]
	if ok {
		c.lru.MoveToFront(elem)
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return elem.Value.(*cacheEntry).value, true
}

func (c *AssetCache) put(key assetKey, value any, size int64) {
	if size <= 0 || size > c.maxSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.size -= old.Value.(*cacheEntry).size
		c.lru.Remove(old)
	}
	// Older versions of the same file are unreachable once it changed.
	for k, elem := range c.entries {
		if k.path == key.path && (k.size != key.size || k.modTime != key.modTime) {
			c.remove(elem)
		}
	}
	c.evictUntilSize(c.maxSize - size)

	c.entries[key] = c.lru.PushFront(&cacheEntry{key: key, value: value, size: size})
	c.size += size
}

// remove drops one entry. Must be called with c.mu held.
func (c *AssetCache) remove(elem *list.Element) {
	e := elem.Value.(*cacheEntry)
	c.lru.Remove(elem)
	c.size -= e.size
	delete(c.entries, e.key)
	c.evictions.Add(1)
}

// evictUntilSize evicts LRU entries until size is at or below target.
// Must be called with c.mu held.
func (c *AssetCache) evictUntilSize(target int64) {
	for c.size > target && c.lru.Len() > 0 {
		c.remove(c.lru.Back())
	}
}

// Purge drops every entry.
func (c *AssetCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictUntilSize(-1)
}

// Stats returns current cache statistics.
func (c *AssetCache) Stats() CacheStats {
	c.mu.Lock()
	size, maxSize, entries := c.size, c.maxSize, len(c.entries)
	c.mu.Unlock()

	return CacheStats{
		Size:      size,
		MaxSize:   maxSize,
		Entries:   entries,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// statKey builds the cache key of a file, or of a frame directory from
// its newest entry and total size.
func statKey(path string) (assetKey, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return assetKey{}, err
	}
	key := assetKey{path: filepath.Clean(path), size: fi.Size(), modTime: fi.ModTime().UnixNano()}
	if !fi.IsDir() {
		return key, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return assetKey{}, err
	}
	key.size = 0
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			return assetKey{}, err
		}
		key.size += info.Size()
		if t := info.ModTime().UnixNano(); t > key.modTime {
			key.modTime = t
		}
	}
	return key, nil
}

func imageSize(img image.Image) int64 {
	b := img.Bounds()
	return int64(b.Dx()) * int64(b.Dy()) * bytesPerPixel
}

func sequenceSize(s *video.Sequence) int64 {
	f, ok := s.FrameAt(0)
	if !ok {
		return 0
	}
	return int64(len(f.Pix)) * int64(s.Len())
}
