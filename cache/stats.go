package cache

import "sync/atomic"

// Stats is an atomic hit/miss counter, embedded in LRU to track how
// effectively the hot-node cache is absorbing Store.Get traffic without
// nodestore.Store having to instrument every call site itself.
type Stats struct {
	hit, miss atomic.Int64
	flag      atomic.Int32
}

// Hit records a cache hit and returns the running hit count.
func (cs *Stats) Hit() int64 { return cs.hit.Add(1) }

// Miss records a cache miss and returns the running miss count.
func (cs *Stats) Miss() int64 { return cs.miss.Add(1) }

// Stats returns the cumulative hit/miss counts and reports whether the
// hit-rate bucket (hit rate rounded to three decimal digits) moved since
// the previous call, so a caller can log "cache effectiveness changed"
// without a line on every single lookup.
func (cs *Stats) Stats() (changed bool, hit, miss int64) {
	hit = cs.hit.Load()
	miss = cs.miss.Load()
	lookups := hit + miss

	hitRate := float64(0)
	if lookups > 0 {
		hitRate = float64(hit) / float64(lookups)
	}
	bucket := int32(hitRate * 1000)

	return cs.flag.Swap(bucket) != bucket, hit, miss
}
