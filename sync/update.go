package sync

import (
	"context"
	"time"

	"github.com/nexusstark/pathsync/felt"
	"github.com/nexusstark/pathsync/kv"
	"github.com/nexusstark/pathsync/statetree"
	"github.com/nexusstark/pathsync/store"
	"github.com/nexusstark/pathsync/syncerr"
	"github.com/nexusstark/pathsync/types"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// update applies one L1-anchored log's state update within tx. The
// caller commits tx on success; update itself never commits or rolls
// back — a non-reorg error here is always fatal and the caller discards
// tx's effects.
func (d *Driver) update(ctx context.Context, l types.StateUpdateLog, tx *kv.Tx) error {
	start := time.Now()
	defer func() { blockApplyDuration().Observe(time.Since(start).Milliseconds()) }()

	su, err := d.retriever.Retrieve(ctx, l)
	if err != nil {
		if syncerr.IsReorg(err) {
			return err
		}
		return errors.Wrapf(err, "retrieve state update for block %d", l.BlockNumber)
	}

	// Contract code for every deployment in this update is fetched from
	// the sequencer concurrently — each call is an independent round
	// trip — then inserted into tx sequentially, since tx buffers writes
	// in an ordered, non-concurrency-safe op log.
	bytecode := make([][]byte, len(su.DeployedContracts))
	g, gctx := errgroup.WithContext(ctx)
	for i, dep := range su.DeployedContracts {
		i, dep := i, dep
		g.Go(func() error {
			code, err := d.fetchCode(gctx, dep.Address)
			if err != nil {
				return errors.Wrapf(err, "fetch contract code for %s", dep.Address.String())
			}
			bytecode[i] = code
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrapf(err, "gather deployed contract code at block %d", l.BlockNumber)
	}

	contracts := store.NewContracts(tx)
	for i, dep := range su.DeployedContracts {
		if err := contracts.Insert(dep.Address, dep.CodeHash, bytecode[i], []byte{}, []byte{}); err != nil {
			return errors.Wrapf(err, "deploy contract %s at block %d", dep.Address.String(), l.BlockNumber)
		}
	}

	global := statetree.LoadGlobalTree(d.nodeStore, tx, d.globalRoot)
	preimage := store.NewContractsStatePreimage(tx)

	for _, cu := range su.ContractUpdates {
		cshOld, err := global.Get(cu.Address)
		if err != nil {
			return errors.Wrapf(err, "read global tree for %s", cu.Address.String())
		}

		storageRootOld := felt.Zero()
		if !cshOld.IsZero() {
			storageRootOld, err = preimage.GetRoot(cshOld)
			if err != nil {
				if !store.IsNotFound(err) {
					return errors.Wrap(err, "read contract state preimage")
				}
				storageRootOld = felt.Zero()
			}
		}

		contractTree := statetree.LoadContractTree(d.nodeStore, tx, storageRootOld)
		for _, w := range cu.Writes {
			contractTree.Set(w.Slot, w.Value)
		}
		storageRootNew, err := contractTree.Apply()
		if err != nil {
			return errors.Wrapf(err, "apply storage writes for %s", cu.Address.String())
		}

		codeHash, err := contracts.GetHash(cu.Address)
		if err != nil {
			if store.IsNotFound(err) {
				return syncerr.NewInvariant(l.BlockNumber, "storage update references undeployed contract %s", cu.Address.String())
			}
			return errors.Wrap(err, "read contract code hash")
		}

		cshNew := statetree.ContractStateHash(codeHash, storageRootNew)
		if err := preimage.Insert(cshNew, codeHash, storageRootNew); err != nil {
			return errors.Wrap(err, "insert contract state preimage")
		}
		global.Set(cu.Address, cshNew)
	}

	newRoot, err := global.Apply()
	if err != nil {
		return errors.Wrap(err, "apply global tree")
	}

	if !newRoot.Equal(l.GlobalRoot) {
		return &syncerr.VerificationError{
			Block:    l.BlockNumber,
			Source:   "l1",
			Expected: l.GlobalRoot,
			Actual:   newRoot,
		}
	}

	block, err := d.sequencer.BlockByNumber(ctx, l.BlockNumber)
	if err != nil {
		return errors.Wrapf(err, "fetch sequencer block %d", l.BlockNumber)
	}
	if block.BlockHash == nil {
		return syncerr.NewInvariant(l.BlockNumber, "sequencer reported no block hash")
	}
	if !block.StateRoot.Equal(l.GlobalRoot) {
		return &syncerr.VerificationError{
			Block:    l.BlockNumber,
			Source:   "sequencer",
			Expected: l.GlobalRoot,
			Actual:   block.StateRoot,
		}
	}

	hist := store.NewGlobalStateHistory(tx)
	if err := hist.Insert(store.GlobalStateHistoryRecord{
		BlockNumber:       l.BlockNumber,
		StarknetBlockHash: *block.BlockHash,
		GlobalRoot:        newRoot,
		L1BlockHash:       l.Provenance.BlockHash,
		L1BlockNumber:     l.Provenance.BlockNumber,
		L1TxHash:          l.Provenance.TxHash,
		L1TxIndex:         l.Provenance.TxIndex,
		L1LogIndex:        l.Provenance.LogIndex,
	}); err != nil {
		return errors.Wrap(err, "insert global state history")
	}

	d.globalRoot = newRoot
	return nil
}

// fetchCode downloads address's code from the sequencer at the latest
// tag and flattens the chunked response into one buffer. ABI and
// definition are stored as empty blobs by the caller — the sequencer
// API this module consumes doesn't yet expose them.
func (d *Driver) fetchCode(ctx context.Context, addr types.ContractAddress) ([]byte, error) {
	chunks, err := d.sequencer.Code(ctx, addr, "latest")
	if err != nil {
		return nil, err
	}

	bytecode := make([]byte, 0, len(chunks)*32)
	for _, c := range chunks {
		bytecode = append(bytecode, c[:]...)
	}
	return bytecode, nil
}
