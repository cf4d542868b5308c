package cache

import (
	"time"

	"github.com/coocood/freecache"
)

// minMemoryCacheBytes is freecache's own lower bound
const minMemoryCacheBytes = 512 * 1024

// memoryCache is the in-process tier. freecache evicts by segment LRU and
// expires entries itself, so no cleanup goroutine is needed.
type memoryCache struct {
	cache *freecache.Cache
}

// newMemoryCache creates a new in-memory cache of size bytes
func newMemoryCache(size int) *memoryCache {
	if size < minMemoryCacheBytes {
		size = minMemoryCacheBytes
	}
	return &memoryCache{
		cache: freecache.NewCache(size),
	}
}

func (mc *memoryCache) get(key string) ([]byte, bool) {
	data, err := mc.cache.Get([]byte(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

func (mc *memoryCache) set(key string, data []byte, ttl time.Duration) {
	_ = mc.cache.Set([]byte(key), data, expireSeconds(ttl))
}

func (mc *memoryCache) del(key string) {
	mc.cache.Del([]byte(key))
}

func (mc *memoryCache) clear() {
	mc.cache.Clear()
}

// size returns the current number of items in cache
func (mc *memoryCache) size() int64 {
	return mc.cache.EntryCount()
}

// expireSeconds converts ttl to freecache's unit; 0 means no expiry
func expireSeconds(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	if s := int(ttl / time.Second); s > 0 {
		return s
	}
	return 1
}
