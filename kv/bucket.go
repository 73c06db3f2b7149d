package kv

import "context"

// Bucket namespaces keys under a string prefix, letting several logical
// tables share one underlying Store.
type Bucket string

func (b Bucket) key(k []byte) []byte {
	if len(b) == 0 {
		return k
	}
	buf := make([]byte, 0, len(b)+len(k))
	buf = append(buf, b...)
	buf = append(buf, k...)
	return buf
}

// NewGetter returns a Getter scoped to this bucket over g.
func (b Bucket) NewGetter(g Getter) Getter {
	return &bucketGetter{b, g}
}

// NewPutter returns a Putter scoped to this bucket over p.
func (b Bucket) NewPutter(p Putter) Putter {
	return &bucketPutter{b, p}
}

// NewStore returns a Store scoped to this bucket over s.
func (b Bucket) NewStore(s Store) Store {
	return &bucketStore{b, s}
}

type bucketGetter struct {
	b Bucket
	g Getter
}

func (bg *bucketGetter) Get(k []byte) ([]byte, error) { return bg.g.Get(bg.b.key(k)) }
func (bg *bucketGetter) Has(k []byte) (bool, error)   { return bg.g.Has(bg.b.key(k)) }

type bucketPutter struct {
	b Bucket
	p Putter
}

func (bp *bucketPutter) Put(k, v []byte) error { return bp.p.Put(bp.b.key(k), v) }
func (bp *bucketPutter) Delete(k []byte) error { return bp.p.Delete(bp.b.key(k)) }

type bucketStore struct {
	b Bucket
	s Store
}

func (bs *bucketStore) Get(k []byte) ([]byte, error) { return bs.s.Get(bs.b.key(k)) }
func (bs *bucketStore) Has(k []byte) (bool, error)   { return bs.s.Has(bs.b.key(k)) }
func (bs *bucketStore) Put(k, v []byte) error        { return bs.s.Put(bs.b.key(k), v) }
func (bs *bucketStore) Delete(k []byte) error        { return bs.s.Delete(bs.b.key(k)) }
func (bs *bucketStore) IsNotFound(err error) bool    { return bs.s.IsNotFound(err) }

func (bs *bucketStore) DeleteRange(ctx context.Context, r Range) error {
	return bs.s.DeleteRange(ctx, Range{Start: bs.b.key(r.Start), Limit: bs.b.key(r.Limit)})
}

func (bs *bucketStore) Iterate(r Range) Iterator {
	return bs.s.Iterate(Range{Start: bs.b.key(r.Start), Limit: bs.b.key(r.Limit)})
}

func (bs *bucketStore) Bulk() Bulk {
	return &bucketBulk{bs.b, bs.s.Bulk()}
}

func (bs *bucketStore) Snapshot() Snapshot {
	return &bucketSnapshot{bs.b, bs.s.Snapshot()}
}

type bucketBulk struct {
	b Bucket
	k Bulk
}

func (bb *bucketBulk) Put(k, v []byte) error { return bb.k.Put(bb.b.key(k), v) }
func (bb *bucketBulk) Delete(k []byte) error { return bb.k.Delete(bb.b.key(k)) }
func (bb *bucketBulk) EnableAutoFlush()      { bb.k.EnableAutoFlush() }
func (bb *bucketBulk) Write() error          { return bb.k.Write() }

type bucketSnapshot struct {
	b Bucket
	s Snapshot
}

func (bs *bucketSnapshot) Get(k []byte) ([]byte, error) { return bs.s.Get(bs.b.key(k)) }
func (bs *bucketSnapshot) Has(k []byte) (bool, error)   { return bs.s.Has(bs.b.key(k)) }
func (bs *bucketSnapshot) Release()                     { bs.s.Release() }
