// Package cache implements a TTL-bounded LRU used to keep hot orders out of
// the database on the read path.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const janitorInterval = 2 * time.Minute

type item struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// LRUCache evicts by recency when full and by TTL lazily on access. Expired
// entries that are never touched again are swept by the janitor.
type LRUCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List
	items    map[string]*list.Element
}

func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	return &LRUCache{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

func (c *LRUCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ele, ok := c.items[key]
	if !ok {
		return nil, false
	}
	it := ele.Value.(*item)
	if time.Now().After(it.expiresAt) {
		c.delete(ele)
		return nil, false
	}
	c.order.MoveToFront(ele)
	return it.value, true
}

// Set inserts or refreshes the key, resetting its TTL either way.
func (c *LRUCache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ele, ok := c.items[key]; ok {
		it := ele.Value.(*item)
		it.value = value
		it.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(ele)
		return
	}

	c.items[key] = c.order.PushFront(&item{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	})
	for c.order.Len() > c.capacity {
		c.delete(c.order.Back())
	}
}

// Remove drops the key so mutations never leave a stale entry behind.
func (c *LRUCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ele, ok := c.items[key]; ok {
		c.delete(ele)
	}
}

func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// StartJanitor sweeps expired entries periodically until ctx is canceled.
func (c *LRUCache) StartJanitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(janitorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (c *LRUCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for e := c.order.Back(); e != nil; {
		prev := e.Prev()
		if now.After(e.Value.(*item).expiresAt) {
			c.delete(e)
		}
		e = prev
	}
}

func (c *LRUCache) delete(e *list.Element) {
	if e == nil {
		return
	}
	c.order.Remove(e)
	delete(c.items, e.Value.(*item).key)
}
