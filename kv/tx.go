package kv

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Tx.Get for a key deleted (directly or via a
// DeleteRange) within the transaction, so callers never fall through to a
// stale value still sitting in the underlying engine.
var ErrNotFound = errors.New("kv: not found")

type opKind uint8

const (
	opPut opKind = iota
	opDelete
	opDeleteRange
)

type op struct {
	kind opKind
	key  []byte
	val  []byte
	r    Range
}

// Tx is a buffered read-write transaction layered over a Store that has
// no native transaction support (goleveldb batches are the only atomic
// write unit it offers). Writes are appended to an ordered op log and
// only reach the underlying engine, as one Bulk batch, on Commit.
// Rollback is therefore always trivially safe: nothing was ever written
// to the engine to begin with.
//
// Reads consult the op log (most recent op affecting a key wins) before
// falling through to the underlying engine, so a transaction observes
// its own uncommitted writes.
type Tx struct {
	engine    Store
	ops       []op
	latest    map[string]int // key -> index into ops of the latest point op
	committed bool
}

// NewTx opens a transaction buffering writes over engine.
func NewTx(engine Store) *Tx {
	return &Tx{engine: engine, latest: make(map[string]int)}
}

func (t *Tx) record(o op) {
	t.ops = append(t.ops, o)
	if o.kind != opDeleteRange {
		t.latest[string(o.key)] = len(t.ops) - 1
	}
}

// rangeDeletedAfter reports whether a DeleteRange op covering key was
// recorded after index i (or at all, when i is -1).
func (t *Tx) rangeDeletedAfter(key []byte, i int) bool {
	for j := len(t.ops) - 1; j > i; j-- {
		o := t.ops[j]
		if o.kind == opDeleteRange && inRange(o.r, key) {
			return true
		}
	}
	return false
}

func inRange(r Range, key []byte) bool {
	if r.Start != nil && string(key) < string(r.Start) {
		return false
	}
	if r.Limit != nil && string(key) >= string(r.Limit) {
		return false
	}
	return true
}

func (t *Tx) Get(key []byte) ([]byte, error) {
	if i, ok := t.latest[string(key)]; ok {
		if t.rangeDeletedAfter(key, i) {
			return nil, ErrNotFound
		}
		switch t.ops[i].kind {
		case opPut:
			return t.ops[i].val, nil
		case opDelete:
			return nil, ErrNotFound
		}
	}
	if t.rangeDeletedAfter(key, -1) {
		return nil, ErrNotFound
	}
	return t.engine.Get(key)
}

func (t *Tx) Has(key []byte) (bool, error) {
	_, err := t.Get(key)
	if err == nil {
		return true, nil
	}
	if t.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func (t *Tx) Put(key, val []byte) error {
	t.record(op{kind: opPut, key: append([]byte(nil), key...), val: append([]byte(nil), val...)})
	return nil
}

func (t *Tx) Delete(key []byte) error {
	t.record(op{kind: opDelete, key: append([]byte(nil), key...)})
	return nil
}

func (t *Tx) IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound || t.engine.IsNotFound(err)
}

// DeleteRange buffers the deletion of every key in [r.Start, r.Limit),
// applied at Commit time to the engine's keys and to keys put earlier in
// this transaction.
func (t *Tx) DeleteRange(_ context.Context, r Range) error {
	t.record(op{kind: opDeleteRange, r: r})
	return nil
}

func (t *Tx) Iterate(r Range) Iterator {
	return t.engine.Iterate(r)
}

func (t *Tx) Bulk() Bulk {
	return &txBulk{tx: t}
}

func (t *Tx) Snapshot() Snapshot {
	return t.engine.Snapshot()
}

// Commit replays the buffered op log against the engine as a single Bulk
// batch: either every effect becomes visible, or (on a write error) none
// of the batch is flushed. A Tx must not be reused after Commit.
func (t *Tx) Commit() error {
	if t.committed {
		return errors.New("kv: transaction already committed")
	}
	bulk := t.engine.Bulk()
	for i, o := range t.ops {
		switch o.kind {
		case opPut:
			if err := bulk.Put(o.key, o.val); err != nil {
				return err
			}
		case opDelete:
			if err := bulk.Delete(o.key); err != nil {
				return err
			}
		case opDeleteRange:
			for _, prev := range t.ops[:i] {
				if prev.kind == opPut && inRange(o.r, prev.key) {
					if err := bulk.Delete(prev.key); err != nil {
						return err
					}
				}
			}
			it := t.engine.Iterate(o.r)
			for ok := it.First(); ok; ok = it.Next() {
				if err := bulk.Delete(append([]byte(nil), it.Key()...)); err != nil {
					it.Release()
					return err
				}
			}
			err := it.Error()
			it.Release()
			if err != nil {
				return err
			}
		}
	}
	if err := bulk.Write(); err != nil {
		return err
	}
	t.committed = true
	return nil
}

// Rollback discards the buffered op log. Since nothing reaches the
// engine before Commit, this never needs to undo engine state.
func (t *Tx) Rollback() {
	t.ops = nil
	t.latest = nil
}

type txBulk struct {
	tx *Tx
}

func (b *txBulk) Put(key, val []byte) error { return b.tx.Put(key, val) }
func (b *txBulk) Delete(key []byte) error   { return b.tx.Delete(key) }
func (b *txBulk) EnableAutoFlush()          {}
func (b *txBulk) Write() error              { return nil }
