package store

import (
	"context"

	"github.com/nexusstark/pathsync/kv"
	"github.com/nexusstark/pathsync/types"
)

// GlobalStateHistoryRecord is one row of the GlobalStateHistory table:
// a StarkNet block's root and the L1 log that witnessed it, plus the
// sequencer-reported StarkNet block hash.
type GlobalStateHistoryRecord struct {
	BlockNumber       types.BlockNumber
	StarknetBlockHash [32]byte
	GlobalRoot        types.GlobalRoot
	L1BlockHash       [32]byte
	L1BlockNumber     uint64
	L1TxHash          [32]byte
	L1TxIndex         uint64
	L1LogIndex        uint64
}

// GlobalStateHistory is the block -> root table with L1 provenance.
type GlobalStateHistory struct {
	store kv.Store
}

// NewGlobalStateHistory scopes a GlobalStateHistory table over store.
func NewGlobalStateHistory(s kv.Store) *GlobalStateHistory {
	return &GlobalStateHistory{store: globalHistoryBucket.NewStore(s)}
}

// Insert writes rec, keyed by its block number. Overwrites any existing
// row for the same block number (used by reorg replay).
func (g *GlobalStateHistory) Insert(rec GlobalStateHistoryRecord) error {
	if err := saveRLP(g.store, blockNumberKey(rec.BlockNumber), &rec); err != nil {
		return err
	}
	return saveRLP(g.store, latestKey, &rec)
}

// Get returns the record for the given block number.
func (g *GlobalStateHistory) Get(n types.BlockNumber) (*GlobalStateHistoryRecord, error) {
	var rec GlobalStateHistoryRecord
	if err := loadRLP(g.store, blockNumberKey(n), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Latest returns the record with the maximum block number, or
// errNotFound if the table is empty.
func (g *GlobalStateHistory) Latest() (*GlobalStateHistoryRecord, error) {
	var rec GlobalStateHistoryRecord
	if err := loadRLP(g.store, latestKey, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteFrom removes all records with block number >= from, and leaves
// Latest() pointing at the highest surviving record (or absent, if none
// survive). Used by the reorg protocol to roll back history beyond a
// still-canonical point.
func (g *GlobalStateHistory) DeleteFrom(from types.BlockNumber, tx kv.Store) error {
	scoped := globalHistoryBucket.NewStore(tx)
	if err := scoped.DeleteRange(context.Background(), kv.Range{
		Start: blockNumberKey(from),
		Limit: blockNumberKey(types.BlockNumber(^uint64(0))),
	}); err != nil {
		return err
	}

	if from == 0 {
		return scoped.Delete(latestKey)
	}

	prior, err := g.Get(from - 1)
	if err != nil {
		if IsNotFound(err) {
			return scoped.Delete(latestKey)
		}
		return err
	}
	return saveRLP(scoped, latestKey, prior)
}
