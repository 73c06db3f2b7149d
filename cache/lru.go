// Package cache implements nodestore's hot-node cache: a fixed-size LRU
// (hashicorp/golang-lru) with built-in hit/miss accounting, so
// nodestore.Store can drive both its in-memory and off-heap tiers
// through a single GetOrLoad call instead of juggling a cache handle and
// a separate stats tracker at each call site.
package cache

import (
	lru "github.com/hashicorp/golang-lru"
)

// LRU is a capacity-bounded cache with an embedded Stats updated on
// every lookup.
type LRU struct {
	cache *lru.Cache
	stats Stats
}

// NewLRU returns an LRU capped at maxSize entries, floored at 16 (below
// that the bookkeeping isn't worth it).
func NewLRU(maxSize int) *LRU {
	if maxSize < 16 {
		maxSize = 16
	}
	c, _ := lru.New(maxSize)
	return &LRU{cache: c}
}

// Get retrieves key's cached value, recording the lookup in Stats.
func (l *LRU) Get(key interface{}) (interface{}, bool) {
	v, ok := l.cache.Get(key)
	if ok {
		l.stats.Hit()
	} else {
		l.stats.Miss()
	}
	return v, ok
}

// Add inserts key/value, evicting the least recently used entry once
// the LRU is full.
func (l *LRU) Add(key, value interface{}) {
	l.cache.Add(key, value)
}

// Loader fetches key's value on an LRU miss, e.g. consulting a larger
// off-heap cache before falling back to the underlying store.
type Loader func(key interface{}) (interface{}, error)

// GetOrLoad returns key's cached value, falling back to loader on a
// miss and populating the cache with whatever loader returns.
func (l *LRU) GetOrLoad(key interface{}, loader Loader) (interface{}, error) {
	if v, ok := l.Get(key); ok {
		return v, nil
	}
	v, err := loader(key)
	if err != nil {
		return nil, err
	}

	l.cache.Add(key, v)
	return v, nil
}

// Stats reports the LRU's cumulative hit/miss counts and whether the
// hit-rate bucket has moved since the last call.
func (l *LRU) Stats() (changed bool, hit, miss int64) {
	return l.stats.Stats()
}
