// Package cache provides the session stores behind evaluation history.
package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"
)

// LRUCache is a thread-safe LRU cache with TTL support.
// Used as the single-node cache and as L1 in two-phase caching.
// Values and lists share one capacity budget; a list counts as one entry.
type LRUCache struct {
	mu      sync.RWMutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List
}

type cacheEntry struct {
	key       string
	value     []byte
	items     [][]byte
	isList    bool
	expiresAt time.Time
}

// NewLRUCache creates a new LRU cache with the specified max size.
func NewLRUCache(maxSize int) *LRUCache {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &LRUCache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get retrieves a value from cache.
func (c *LRUCache) Get(ctx context.Context, sessionID string, key string) ([]byte, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.lookup(c.makeKey(sessionID, key))
	if entry == nil || entry.isList {
		return nil, nil
	}
	return entry.value, nil
}

// Set stores a value in cache with TTL.
func (c *LRUCache) Set(ctx context.Context, sessionID string, key string, value []byte, ttl time.Duration) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	fullKey := c.makeKey(sessionID, key)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Update existing entry
	if elem, ok := c.items[fullKey]; ok {
		c.order.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry)
		entry.value = value
		entry.items = nil
		entry.isList = false
		entry.expiresAt = expiry(ttl)
		return nil
	}

	c.insert(&cacheEntry{
		key:       fullKey,
		value:     value,
		expiresAt: expiry(ttl),
	})
	return nil
}

// Delete removes a value or list from cache.
func (c *LRUCache) Delete(ctx context.Context, sessionID string, key string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	fullKey := c.makeKey(sessionID, key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[fullKey]; ok {
		c.removeElement(elem)
	}
	return nil
}

// Append pushes value to the tail of the list at key and keeps the newest
// maxLen items. The list expiration is refreshed on every push.
func (c *LRUCache) Append(ctx context.Context, sessionID string, key string, value []byte, maxLen int, ttl time.Duration) (int64, error) {
	if sessionID == "" {
		return 0, fmt.Errorf("sessionID is required")
	}

	fullKey := c.makeKey(sessionID, key)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.lookup(fullKey)
	if entry == nil || !entry.isList {
		if entry != nil {
			c.removeElement(c.items[fullKey])
		}
		entry = &cacheEntry{key: fullKey, isList: true}
		c.insert(entry)
	}

	entry.items = append(entry.items, value)
	if maxLen > 0 && len(entry.items) > maxLen {
		entry.items = append([][]byte(nil), entry.items[len(entry.items)-maxLen:]...)
	}
	entry.expiresAt = expiry(ttl)

	return int64(len(entry.items)), nil
}

// Range returns a copy of the list at key, oldest first.
func (c *LRUCache) Range(ctx context.Context, sessionID string, key string) ([][]byte, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.lookup(c.makeKey(sessionID, key))
	if entry == nil || !entry.isList {
		return nil, nil
	}
	out := make([][]byte, len(entry.items))
	copy(out, entry.items)
	return out, nil
}

// Ping checks cache health.
func (c *LRUCache) Ping(ctx context.Context) error {
	return nil
}

// Close cleans up the cache.
func (c *LRUCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order = list.New()
	return nil
}

// Stats returns cache statistics.
func (c *LRUCache) Stats() (size int, capacity int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len(), c.maxSize
}

// expiry returns the deadline for ttl. A non-positive ttl never expires.
func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

func (c *LRUCache) makeKey(sessionID, key string) string {
	return sessionID + ":" + key
}

// lookup returns the live entry for fullKey and marks it recently used.
// Expired entries are removed. Caller holds c.mu.
func (c *LRUCache) lookup(fullKey string) *cacheEntry {
	elem, ok := c.items[fullKey]
	if !ok {
		return nil
	}

	entry := elem.Value.(*cacheEntry)
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.removeElement(elem)
		return nil
	}

	// Move to front (most recently used)
	c.order.MoveToFront(elem)
	return entry
}

// insert adds a new entry and evicts over capacity. Caller holds c.mu.
func (c *LRUCache) insert(entry *cacheEntry) {
	elem := c.order.PushFront(entry)
	c.items[entry.key] = elem

	for c.order.Len() > c.maxSize {
		c.removeOldest()
	}
}

func (c *LRUCache) removeElement(elem *list.Element) {
	c.order.Remove(elem)
	entry := elem.Value.(*cacheEntry)
	delete(c.items, entry.key)
}

func (c *LRUCache) removeOldest() {
	elem := c.order.Back()
	if elem != nil {
		c.removeElement(elem)
	}
}
