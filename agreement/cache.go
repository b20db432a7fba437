package agreement

import (
	"encoding/hex"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/golang/groupcache/singleflight"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/dsl/compiler"
)

func newProgramCache(size int, fillFn func(conditions []string) (*compiler.Program, error)) *programCache {
	return &programCache{
		lru:    lru.New(size),
		fillFn: fillFn,
	}
}

// programCache holds compiled record programs keyed by the hash of their
// conditions. Compilation is pure, so entries never go stale.
type programCache struct {
	mu     sync.Mutex
	lru    *lru.Cache
	fillFn func(conditions []string) (*compiler.Program, error)
	single singleflight.Group
}

func (c *programCache) lookup(conditions []string) (*compiler.Program, error) {
	key := hex.EncodeToString(compiler.ConditionsHash(conditions))
	if p, ok := c.get(key); ok {
		return p, nil
	}

	prog, err := c.single.Do(key, func() (interface{}, error) {
		p, err := c.fillFn(conditions)
		if err != nil {
			return nil, err
		}

		c.add(key, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return prog.(*compiler.Program), nil
}

func (c *programCache) get(key string) (*compiler.Program, bool) {
	c.mu.Lock()
	prog, ok := c.lru.Get(key)
	c.mu.Unlock()
	if prog == nil {
		return nil, ok
	}
	return prog.(*compiler.Program), ok
}

func (c *programCache) add(key string, prog *compiler.Program) {
	c.mu.Lock()
	c.lru.Add(key, prog)
	c.mu.Unlock()
}

func (c *programCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
