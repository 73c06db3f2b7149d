package sync

import (
	"context"

	"github.com/nexusstark/pathsync/kv"
	"github.com/nexusstark/pathsync/store"
	"github.com/nexusstark/pathsync/types"
	"github.com/pkg/errors"
)

// reorg walks persisted GlobalStateHistory newest-to-oldest, querying
// L1 for each recorded block hash, until it finds the deepest record
// still canonical on L1. Every record strictly newer than that point is
// deleted in one transaction; the fetcher cursor and d.globalRoot are
// then reinitialized from the new latest record (or genesis, if none
// survive).
//
// Contract blob entries are never rolled back here: deployments are
// monotone in practice, and Contracts.Insert is idempotent on identical
// (address, code_hash) content, so a deploying transaction that gets
// replayed from a reorged-then-recanonicalized L1 block is a no-op.
func (d *Driver) reorg(ctx context.Context) error {
	readTx := kv.NewTx(d.engine)
	hist := store.NewGlobalStateHistory(readTx)

	latest, err := hist.Latest()
	if err != nil {
		readTx.Rollback()
		if store.IsNotFound(err) {
			// Nothing persisted yet: resume from genesis.
			return d.reinitCursor(ctx)
		}
		return errors.Wrap(err, "read latest global state for reorg")
	}

	deepestCanonical := int64(-1)
	for n := int64(latest.BlockNumber); n >= 0; n-- {
		rec, err := hist.Get(types.BlockNumber(n))
		if err != nil {
			if store.IsNotFound(err) {
				continue
			}
			readTx.Rollback()
			return errors.Wrapf(err, "read history record %d during reorg", n)
		}

		hash, err := d.l1.CanonicalBlockHash(ctx, rec.L1BlockNumber)
		if err != nil {
			readTx.Rollback()
			return errors.Wrapf(err, "query L1 canonical hash for block %d", rec.L1BlockNumber)
		}
		if hash == rec.L1BlockHash {
			deepestCanonical = n
			break
		}
	}
	readTx.Rollback()

	deleteFrom := types.BlockNumber(deepestCanonical + 1)

	writeTx := kv.NewTx(d.engine)
	if err := store.NewGlobalStateHistory(writeTx).DeleteFrom(deleteFrom, writeTx); err != nil {
		writeTx.Rollback()
		return errors.Wrapf(err, "delete history from block %d", deleteFrom)
	}
	if err := writeTx.Commit(); err != nil {
		return errors.Wrap(err, "commit reorg rollback")
	}

	log.Warn("rewound local state after L1 reorg", "deletedFrom", deleteFrom)
	return d.reinitCursor(ctx)
}
