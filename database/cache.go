package database

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

const maxCachedSlots = 1024

func newSlotCache(fillFn func(name string) (slot, error)) *slotCache {
	return &slotCache{
		lru:    lru.New(maxCachedSlots),
		fillFn: fillFn,
	}
}

// slotCache keeps recently read array slots. Callers hold the name's lock
// around lookup and around the write that precedes add or remove, so a
// fill never races a write of the same name.
type slotCache struct {
	mu     sync.Mutex
	lru    *lru.Cache
	fillFn func(name string) (slot, error)
}

func (c *slotCache) lookup(name string) (slot, error) {
	if s, ok := c.get(name); ok {
		return s, nil
	}

	s, err := c.fillFn(name)
	if err != nil {
		return slot{}, err
	}

	c.add(name, s)
	return s, nil
}

func (c *slotCache) get(name string) (slot, bool) {
	c.mu.Lock()
	s, ok := c.lru.Get(name)
	c.mu.Unlock()
	if s == nil {
		return slot{}, ok
	}
	return s.(slot), ok
}

func (c *slotCache) add(name string, s slot) {
	c.mu.Lock()
	c.lru.Add(name, s)
	c.mu.Unlock()
}

func (c *slotCache) remove(name string) {
	c.mu.Lock()
	c.lru.Remove(name)
	c.mu.Unlock()
}
