package utils

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheItem 包装缓存数据和过期时间
type CacheItem struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Cache is a small TTL cache on top of an LRU. Entries are grouped into
// namespaces; Invalidate bumps a namespace's generation so readers that
// raced with a write can never repopulate it with stale data.
type Cache struct {
	lruCache *lru.Cache[string, CacheItem]

	mu          sync.Mutex
	generations map[string]uint64
}

// NewCache creates a cache holding at most size entries.
func NewCache(size int) (*Cache, error) {
	l, err := lru.New[string, CacheItem](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &Cache{lruCache: l, generations: make(map[string]uint64)}, nil
}

// Key builds a key inside namespace for the namespace's current generation.
// Capture it before reading the source of truth, then Set under it.
func (c *Cache) Key(namespace string, parts ...interface{}) string {
	c.mu.Lock()
	gen := c.generations[namespace]
	c.mu.Unlock()

	key := fmt.Sprintf("%s:g%d", namespace, gen)
	for _, p := range parts {
		key += fmt.Sprintf(":%v", p)
	}
	return key
}

// Invalidate drops every key built for namespace so far.
func (c *Cache) Invalidate(namespace string) {
	c.mu.Lock()
	c.generations[namespace]++
	c.mu.Unlock()
}

// Set 设置缓存，TTL 为过期时间
func (c *Cache) Set(key string, data interface{}, ttl time.Duration) {
	c.lruCache.Add(key, CacheItem{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
	})
}

// Get 获取缓存，若不存在或已过期则返回 nil
func (c *Cache) Get(key string) interface{} {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil
	}

	if time.Now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return nil
	}

	return val.Data
}

// Delete 删除指定缓存
func (c *Cache) Delete(key string) {
	c.lruCache.Remove(key)
}
