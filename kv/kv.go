// Package kv defines the minimal key/value storage contract the rest of
// the module programs against: getters, putters, range iteration,
// snapshots and write batches. Concrete engines (package lvldb) and the
// higher-level node/table stores are built entirely on this interface so
// they never depend on a specific storage engine's API.
package kv

import "context"

// Getter reads values and existence by key.
type Getter interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
}

// Putter writes and deletes values by key.
type Putter interface {
	Put(key, val []byte) error
	Delete(key []byte) error
}

// GetPutter is a Getter and a Putter.
type GetPutter interface {
	Getter
	Putter
}

// Range bounds a key range: [Start, Limit). A nil Limit means unbounded.
type Range struct {
	Start []byte
	Limit []byte
}

// Iterator walks a Range in key order.
type Iterator interface {
	First() bool
	Last() bool
	Next() bool
	Prev() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// Snapshot is a point-in-time, read-only view.
type Snapshot interface {
	Getter
	Release()
}

// Bulk batches writes for efficient flushing.
type Bulk interface {
	Putter
	EnableAutoFlush()
	Write() error
}

// Store is the full storage-engine contract: everything built on top of
// it (node store, state tables, trie) is engine-agnostic.
type Store interface {
	GetPutter
	IsNotFound(err error) bool
	DeleteRange(ctx context.Context, r Range) error
	Iterate(r Range) Iterator
	Bulk() Bulk
	Snapshot() Snapshot
}
