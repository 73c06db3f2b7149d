// Package nodestore implements the content-addressed trie node store:
// Felt -> TrieNode, with reference counting so nodes shared across trie
// versions are reclaimed only once nothing references them. It layers a
// hot in-memory LRU and a larger off-heap cache in front of the
// caller-supplied kv.Store.
package nodestore

import (
	"bytes"
	"encoding/binary"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/nexusstark/pathsync/cache"
	"github.com/nexusstark/pathsync/felt"
	"github.com/nexusstark/pathsync/kv"
	"github.com/nexusstark/pathsync/pedersen"
	"github.com/pkg/errors"
	"github.com/qianbin/directcache"
	"github.com/qianbin/drlp"
)

// ErrNotFound is returned by Get when no node has the given hash.
var ErrNotFound = errors.New("nodestore: node not found")

// NodeKind discriminates the three trie node shapes.
type NodeKind uint8

const (
	KindLeaf NodeKind = iota
	KindEdge
	KindBinary
)

// Node is the canonical, hash-addressed representation of a trie node.
// Exactly one of the kind-specific field groups is meaningful, selected
// by Kind.
type Node struct {
	Kind NodeKind

	// Leaf
	Value felt.Felt

	// Edge
	Path   felt.Felt
	Length uint8
	Child  felt.Felt

	// Binary
	Left  felt.Felt
	Right felt.Felt
}

// Encode canonically serializes n as one RLP list, built with drlp's
// append-style encoder: [kind, value] for a Leaf, [kind, path, length,
// child] for an Edge, [kind, left, right] for a Binary. The layout is
// stable — changing it invalidates existing stores.
func Encode(n *Node) []byte {
	var buf []byte
	switch n.Kind {
	case KindLeaf:
		v := n.Value.Bytes()
		buf = drlp.AppendUint(buf, uint64(KindLeaf))
		buf = drlp.AppendString(buf, v[:])
	case KindEdge:
		p := n.Path.Bytes()
		c := n.Child.Bytes()
		buf = drlp.AppendUint(buf, uint64(KindEdge))
		buf = drlp.AppendString(buf, p[:])
		buf = drlp.AppendUint(buf, uint64(n.Length))
		buf = drlp.AppendString(buf, c[:])
	case KindBinary:
		l := n.Left.Bytes()
		r := n.Right.Bytes()
		buf = drlp.AppendUint(buf, uint64(KindBinary))
		buf = drlp.AppendString(buf, l[:])
		buf = drlp.AppendString(buf, r[:])
	default:
		panic("nodestore: unknown node kind")
	}
	return drlp.EndList(buf, 0)
}

// Decode parses bytes previously produced by Encode. drlp writes
// canonical RLP, so go-ethereum's stream decoder reads it back directly.
func Decode(b []byte) (*Node, error) {
	s := rlp.NewStream(bytes.NewReader(b), uint64(len(b)))
	if _, err := s.List(); err != nil {
		return nil, errors.Wrap(err, "decode trie node")
	}
	kind, err := s.Uint64()
	if err != nil {
		return nil, errors.Wrap(err, "decode node kind")
	}

	n := &Node{Kind: NodeKind(kind)}
	switch n.Kind {
	case KindLeaf:
		if n.Value, err = decodeFelt(s); err != nil {
			return nil, err
		}
	case KindEdge:
		if n.Path, err = decodeFelt(s); err != nil {
			return nil, err
		}
		length, err := s.Uint64()
		if err != nil {
			return nil, errors.Wrap(err, "decode edge path length")
		}
		n.Length = uint8(length)
		if n.Child, err = decodeFelt(s); err != nil {
			return nil, err
		}
	case KindBinary:
		if n.Left, err = decodeFelt(s); err != nil {
			return nil, err
		}
		if n.Right, err = decodeFelt(s); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("decode trie node: unknown kind %d", kind)
	}
	if err := s.ListEnd(); err != nil {
		return nil, errors.Wrap(err, "decode trie node")
	}
	return n, nil
}

func decodeFelt(s *rlp.Stream) (felt.Felt, error) {
	b, err := s.Bytes()
	if err != nil {
		return felt.Felt{}, errors.Wrap(err, "decode felt field")
	}
	if len(b) > felt.Len {
		return felt.Felt{}, errors.Errorf("felt field wider than %d bytes", felt.Len)
	}
	var fixed [felt.Len]byte
	copy(fixed[felt.Len-len(b):], b)
	var f felt.Felt
	if err := f.SetBytes(fixed); err != nil {
		return felt.Felt{}, err
	}
	return f, nil
}

// Hash computes a node's content hash per its kind:
//   - Leaf:   hash = value
//   - Binary: hash = pedersen(left, right)
//   - Edge:   hash = pedersen(child, path) + length, field addition
//
// Node identity is this hash: two nodes with identical contents always
// hash identically, which is what makes the store idempotent.
func Hash(n *Node) felt.Felt {
	switch n.Kind {
	case KindLeaf:
		return n.Value
	case KindBinary:
		return pedersen.Hash(n.Left, n.Right)
	case KindEdge:
		h := pedersen.Hash(n.Child, n.Path)
		return h.Add(felt.FromUint64(uint64(n.Length)))
	default:
		panic("nodestore: unknown node kind")
	}
}

// Options configures the store's caching layers.
type Options struct {
	// LRUSize bounds the number of hot nodes held in the in-process LRU.
	LRUSize int
	// DirectCacheSizeMB bounds the larger off-heap node cache.
	DirectCacheSizeMB int
}

// Store is the content-addressed node store. Node bytes and refcounts
// are written inside the caller's transaction and reach the engine only
// when that transaction commits. The LRU and off-heap caches are filled
// as nodes are put or loaded and are not tied to any transaction, so Get
// can return a node whose transaction has not committed or was rolled
// back.
type Store struct {
	bucket kv.Bucket
	lru    *cache.LRU
	dcache *directcache.Cache
}

const defaultLRUSize = 4096

// Open builds a Store backed by bucket, a namespace within the given
// kv.Store (callers typically pass a per-table Bucket over their engine).
func Open(bucket kv.Bucket, opts Options) (*Store, error) {
	size := opts.LRUSize
	if size <= 0 {
		size = defaultLRUSize
	}
	c := cache.NewLRU(size)

	var dc *directcache.Cache
	if opts.DirectCacheSizeMB > 0 {
		dc = directcache.New(opts.DirectCacheSizeMB * 1024 * 1024)
	}

	return &Store{bucket: bucket, lru: c, dcache: dc}, nil
}

// Stats reports the hot-node LRU's cumulative hit/miss counts, and
// whether the hit rate bucket has changed since the last call (used by
// the driver to decide when a cache-effectiveness log line is worth
// emitting).
func (s *Store) Stats() (changed bool, hit, miss int64) {
	return s.lru.Stats()
}

// refcountKey derives the storage key used for a node's reference count,
// kept alongside (but distinguishable from) the node's own bytes.
func refcountKey(hash felt.Felt) []byte {
	b := hash.Bytes()
	out := make([]byte, 0, len(b)+1)
	out = append(out, 'r')
	out = append(out, b[:]...)
	return out
}

func nodeKey(hash felt.Felt) []byte {
	b := hash.Bytes()
	out := make([]byte, 0, len(b)+1)
	out = append(out, 'n')
	out = append(out, b[:]...)
	return out
}

// Get retrieves the node with the given hash from tx, consulting caches
// first. The zero hash never round-trips through the store: callers must
// treat it as "empty subtree" before calling Get.
func (s *Store) Get(tx kv.Getter, hash felt.Felt) (*Node, error) {
	key := hash.Bytes()

	v, err := s.lru.GetOrLoad(key, func(interface{}) (interface{}, error) {
		return s.loadMissed(tx, hash, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Node), nil
}

// loadMissed runs only when the LRU misses: it checks the off-heap
// directcache tier before falling back to the kv engine, populating
// directcache on an engine read so the next miss finds it there.
func (s *Store) loadMissed(tx kv.Getter, hash felt.Felt, key [32]byte) (*Node, error) {
	if s.dcache != nil {
		if b, ok := s.dcache.Get(key[:]); ok {
			return Decode(b)
		}
	}

	raw, err := s.bucket.NewGetter(tx).Get(nodeKey(hash))
	if err != nil {
		return nil, ErrNotFound
	}

	n, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	if s.dcache != nil {
		s.dcache.Set(key[:], raw)
	}
	return n, nil
}

// Put hashes n, stores it idempotently under that hash and bumps its
// refcount within tx, and returns the hash. Two calls with identical
// node contents produce the same hash and are a storage no-op after the
// first (beyond the refcount bump).
func (s *Store) Put(tx kv.Store, n *Node) (felt.Felt, error) {
	hash := Hash(n)

	putter := s.bucket.NewPutter(tx)
	nk := nodeKey(hash)

	if has, _ := s.bucket.NewGetter(tx).Has(nk); !has {
		raw := Encode(n)
		if err := putter.Put(nk, raw); err != nil {
			return felt.Felt{}, err
		}

		key := hash.Bytes()
		s.lru.Add(key, n)
		if s.dcache != nil {
			s.dcache.Set(key[:], raw)
		}
	}

	if err := s.bumpRefcount(tx, hash, 1); err != nil {
		return felt.Felt{}, err
	}

	return hash, nil
}

// Release decrements hash's refcount within tx; when it reaches zero the
// node becomes eligible for later reclamation (garbage collection is out
// of the critical path and not performed eagerly here).
func (s *Store) Release(tx kv.Store, hash felt.Felt) error {
	return s.bumpRefcount(tx, hash, -1)
}

func (s *Store) bumpRefcount(tx kv.Store, hash felt.Felt, delta int64) error {
	key := refcountKey(hash)
	getter := s.bucket.NewGetter(tx)
	putter := s.bucket.NewPutter(tx)

	var count int64
	if raw, err := getter.Get(key); err == nil {
		count = int64(binary.BigEndian.Uint64(raw))
	}
	count += delta
	if count < 0 {
		count = 0
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(count))
	return putter.Put(key, buf)
}
