// Package sync implements the synchronization driver: the loop that
// advances local StarkNet state one L1-anchored block at a time,
// cross-checks the reconstructed root against both the L1 and sequencer
// witnesses, and commits atomically.
package sync

import (
	"context"

	ethlog "github.com/ethereum/go-ethereum/log"
	"github.com/nexusstark/pathsync/co"
	"github.com/nexusstark/pathsync/felt"
	"github.com/nexusstark/pathsync/kv"
	"github.com/nexusstark/pathsync/lvldb"
	"github.com/nexusstark/pathsync/metrics"
	"github.com/nexusstark/pathsync/nodestore"
	"github.com/nexusstark/pathsync/store"
	"github.com/nexusstark/pathsync/syncerr"
	"github.com/nexusstark/pathsync/types"
	"github.com/pkg/errors"
)

var log = ethlog.New("pkg", "sync")

const nodeBucket = kv.Bucket("t:")

var (
	blocksApplied       = metrics.LazyLoadCounter("sync_blocks_applied_total")
	reorgsTotal         = metrics.LazyLoadCounter("sync_reorgs_total")
	verificationFailure = metrics.LazyLoadCounter("sync_verification_failures_total")
	blockApplyDuration  = metrics.LazyLoadHistogram("sync_block_apply_duration_ms", nil)
)

// Options configures the storage engine and node-store caches the
// driver opens database_path with.
type Options struct {
	DB        lvldb.Options
	NodeStore nodestore.Options
}

// Driver is the synchronization core. State is confined to its own
// fields: no process-wide mutable state. Not safe for concurrent use —
// the CLI entrypoint runs Sync from a single goroutine (see
// cmd/pathsync), and the database connection is exclusive to the driver
// during Sync.
type Driver struct {
	engine    *lvldb.LevelDB
	nodeStore *nodestore.Store

	l1        L1LogFetcher
	retriever StateUpdateRetriever
	sequencer SequencerClient

	globalRoot types.GlobalRoot
	tick       co.Signal
}

// NewTicker returns a Waiter that wakes the next time Sync commits a
// block, for in-process consumers that want to react to a newly
// committed root without polling GlobalRoot.
func (d *Driver) NewTicker() co.Waiter {
	return d.tick.NewWaiter()
}

// New opens databasePath, reads the latest persisted global-state record
// in a read-only transaction (rolled back unconditionally, even on the
// success path), derives the fetcher's initial cursor, and returns a
// driver primed to sync.
func New(ctx context.Context, databasePath string, l1 L1LogFetcher, retriever StateUpdateRetriever, sequencer SequencerClient, opts Options) (*Driver, error) {
	engine, err := lvldb.New(databasePath, opts.DB)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	nodeStore, err := nodestore.Open(nodeBucket, opts.NodeStore)
	if err != nil {
		return nil, errors.Wrap(err, "open node store")
	}

	d := &Driver{
		engine:    engine,
		nodeStore: nodeStore,
		l1:        l1,
		retriever: retriever,
		sequencer: sequencer,
	}

	if err := d.reinitCursor(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Close releases the underlying database handle.
func (d *Driver) Close() error { return d.engine.Close() }

// GlobalRoot returns the driver's in-memory mirror of the most recently
// committed root.
func (d *Driver) GlobalRoot() types.GlobalRoot { return d.globalRoot }

// reinitCursor reads the latest GlobalStateHistory record in a read-only
// transaction — discarded, never committed — and repositions both the
// fetcher cursor and d.globalRoot from it. Used by New and by the reorg
// protocol after rewinding history.
func (d *Driver) reinitCursor(ctx context.Context) error {
	tx := kv.NewTx(d.engine)
	defer tx.Rollback()

	hist := store.NewGlobalStateHistory(tx)
	latest, err := hist.Latest()
	if err != nil {
		if !store.IsNotFound(err) {
			return errors.Wrap(err, "read latest global state")
		}
		d.globalRoot = felt.Zero()
		return d.l1.Seek(ctx, nil)
	}

	d.globalRoot = latest.GlobalRoot
	provenance := types.NewL1Provenance(latest.L1BlockHash, latest.L1BlockNumber, latest.L1TxHash, latest.L1TxIndex, latest.L1LogIndex)
	return d.l1.Seek(ctx, &provenance)
}

// Sync runs until the L1 fetcher reports no further logs. The caller may
// re-invoke it periodically (e.g. on a timer in cmd/pathsync) to pick up
// newly finalized L1 blocks.
func (d *Driver) Sync(ctx context.Context) error {
	for {
		logs, err := d.l1.Fetch(ctx)
		if err != nil {
			if syncerr.IsReorg(err) {
				reorgsTotal().Add(1)
				if rerr := d.reorg(ctx); rerr != nil {
					return errors.Wrap(rerr, "reorg recovery")
				}
				continue
			}
			return err
		}
		if len(logs) == 0 {
			return nil
		}

		for _, l := range logs {
			if err := ctx.Err(); err != nil {
				return err
			}

			prevRoot := d.globalRoot
			tx := kv.NewTx(d.engine)
			applyErr := d.update(ctx, l, tx)
			if applyErr != nil {
				tx.Rollback()
				if syncerr.IsReorg(applyErr) {
					reorgsTotal().Add(1)
					if rerr := d.reorg(ctx); rerr != nil {
						return errors.Wrap(rerr, "reorg recovery")
					}
					break
				}
				if _, ok := syncerr.IsVerification(applyErr); ok {
					verificationFailure().Add(1)
				}
				return applyErr
			}
			if err := tx.Commit(); err != nil {
				d.globalRoot = prevRoot
				return errors.Wrapf(err, "commit block %d", l.BlockNumber)
			}
			blocksApplied().Add(1)
			log.Info("applied L1-anchored block", "block", l.BlockNumber, "root", l.GlobalRoot.String())
			d.tick.Broadcast()
		}

		if changed, hit, miss := d.nodeStore.Stats(); changed {
			log.Debug("trie node cache", "hit", hit, "miss", miss)
		}
	}
}
