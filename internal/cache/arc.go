package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// NewLRU builds the ARC cache fronting progression store reads.
func NewLRU(size int) (*LRU, error) {
	c, err := lru.NewARC(size)
	if err != nil {
		return nil, fmt.Errorf("new arc cache: %w", err)
	}

	return &LRU{cache: c}, nil
}

var _ Cache = (*LRU)(nil)

type LRU struct {
	cache *lru.ARCCache
}

func (c *LRU) Get(key any) (any, bool) {
	return c.cache.Get(key)
}

func (c *LRU) Add(key, value any) {
	c.cache.Add(key, value)
}

func (c *LRU) Keys() []any {
	return c.cache.Keys()
}

func (c *LRU) Delete(key any) {
	c.cache.Remove(key)
}
