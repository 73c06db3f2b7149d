// Package lvldb is the goleveldb-backed kv.Store implementation used for
// both durable on-disk storage and in-memory test stores.
package lvldb

import (
	"context"
	"errors"

	"github.com/nexusstark/pathsync/kv"
	pkgerrors "github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	leveldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Options configures the on-disk engine's caches.
type Options struct {
	CacheSizeMB       int
	OpenFilesCacheCap int
}

// LevelDB wraps a goleveldb database and implements kv.Store.
type LevelDB struct {
	db *leveldb.DB
}

// New opens (creating if absent) a durable LevelDB at path.
func New(path string, opts Options) (*LevelDB, error) {
	o := &opt.Options{
		OpenFilesCacheCapacity: opts.OpenFilesCacheCap,
		BlockCacheCapacity:     opts.CacheSizeMB * opt.MiB,
		WriteBuffer:            opts.CacheSizeMB * opt.MiB / 2,
		Filter:                 nil,
	}
	db, err := leveldb.OpenFile(path, o)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open leveldb")
	}
	return &LevelDB{db: db}, nil
}

// NewMem opens an in-memory LevelDB, used throughout the test suite.
func NewMem() (*LevelDB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open mem leveldb")
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Close() error { return l.db.Close() }

func (l *LevelDB) Get(key []byte) ([]byte, error) {
	v, err := l.db.Get(key, nil)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (l *LevelDB) Has(key []byte) (bool, error) {
	return l.db.Has(key, nil)
}

func (l *LevelDB) Put(key, val []byte) error {
	return l.db.Put(key, val, nil)
}

func (l *LevelDB) Delete(key []byte) error {
	return l.db.Delete(key, nil)
}

func (l *LevelDB) IsNotFound(err error) bool {
	return errors.Is(err, leveldberrors.ErrNotFound)
}

func (l *LevelDB) DeleteRange(ctx context.Context, r kv.Range) error {
	it := l.db.NewIterator(&util.Range{Start: r.Start, Limit: r.Limit}, nil)
	defer it.Release()

	batch := new(leveldb.Batch)
	const flushEvery = 8192
	n := 0
	for it.Next() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		batch.Delete(append([]byte(nil), it.Key()...))
		n++
		if n%flushEvery == 0 {
			if err := l.db.Write(batch, nil); err != nil {
				return err
			}
			batch.Reset()
		}
	}
	if err := it.Error(); err != nil {
		return err
	}
	return l.db.Write(batch, nil)
}

func (l *LevelDB) Iterate(r kv.Range) kv.Iterator {
	return &iterator{it: l.db.NewIterator(&util.Range{Start: r.Start, Limit: r.Limit}, nil)}
}

func (l *LevelDB) Bulk() kv.Bulk {
	return &bulk{db: l.db, batch: new(leveldb.Batch)}
}

func (l *LevelDB) Snapshot() kv.Snapshot {
	snap, err := l.db.GetSnapshot()
	if err != nil {
		return &errSnapshot{err: err}
	}
	return &snapshot{snap: snap}
}

type iterator struct {
	it leveldbIterator
}

// leveldbIterator narrows goleveldb's leveldb.Iterator down to what kv.Iterator needs.
type leveldbIterator interface {
	First() bool
	Last() bool
	Next() bool
	Prev() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

func (i *iterator) First() bool      { return i.it.First() }
func (i *iterator) Last() bool       { return i.it.Last() }
func (i *iterator) Next() bool       { return i.it.Next() }
func (i *iterator) Prev() bool       { return i.it.Prev() }
func (i *iterator) Key() []byte      { return i.it.Key() }
func (i *iterator) Value() []byte    { return i.it.Value() }
func (i *iterator) Release()         { i.it.Release() }
func (i *iterator) Error() error     { return i.it.Error() }

type bulk struct {
	db        *leveldb.DB
	batch     *leveldb.Batch
	autoFlush bool
}

func (b *bulk) Put(key, val []byte) error {
	b.batch.Put(key, val)
	return b.maybeFlush()
}

func (b *bulk) Delete(key []byte) error {
	b.batch.Delete(key)
	return b.maybeFlush()
}

func (b *bulk) EnableAutoFlush() { b.autoFlush = true }

const bulkAutoFlushLen = 4096

func (b *bulk) maybeFlush() error {
	if b.autoFlush && b.batch.Len() >= bulkAutoFlushLen {
		return b.Write()
	}
	return nil
}

func (b *bulk) Write() error {
	if b.batch.Len() == 0 {
		return nil
	}
	err := b.db.Write(b.batch, nil)
	b.batch.Reset()
	return err
}

type snapshot struct {
	snap *leveldb.Snapshot
}

func (s *snapshot) Get(key []byte) ([]byte, error) { return s.snap.Get(key, nil) }
func (s *snapshot) Has(key []byte) (bool, error)   { return s.snap.Has(key, nil) }
func (s *snapshot) Release()                       { s.snap.Release() }

type errSnapshot struct{ err error }

func (s *errSnapshot) Get(key []byte) ([]byte, error) { return nil, s.err }
func (s *errSnapshot) Has(key []byte) (bool, error)   { return false, s.err }
func (s *errSnapshot) Release()                       {}
