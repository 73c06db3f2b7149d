package sync

import (
	"context"

	"github.com/nexusstark/pathsync/types"
)

// L1LogFetcher is the stateful cursor over L1 state-update logs the
// driver advances one batch at a time. Implementations own the
// transport (RPC polling, websocket subscription, …); the driver only
// sees logs, reorg signals and transient failures.
type L1LogFetcher interface {
	// Seek repositions the fetcher immediately after the L1 log
	// identified by after, or at genesis when after is nil. Called once
	// by New and again whenever the reorg protocol rewinds local state.
	Seek(ctx context.Context, after *types.L1Provenance) error

	// Fetch returns the next batch of logs in strict L1 order. An empty,
	// nil-error result means no further logs are currently available
	// (Sync returns to let the caller re-invoke later). An error
	// wrapping syncerr.ErrReorg signals the fetcher itself observed a
	// reorg; one wrapping syncerr.ErrTransient signals an I/O failure
	// the fetcher's own retry/backoff has already exhausted.
	Fetch(ctx context.Context) ([]types.StateUpdateLog, error)

	// CanonicalBlockHash reports the current canonical L1 block hash at
	// l1BlockNumber, used by the reorg protocol to find the deepest
	// still-canonical point in persisted history.
	CanonicalBlockHash(ctx context.Context, l1BlockNumber uint64) ([32]byte, error)
}

// StateUpdateRetriever fetches the full payload a StateUpdateLog only
// points at: the set of contract deployments and storage writes.
type StateUpdateRetriever interface {
	// Retrieve returns the StateUpdate for log. An error wrapping
	// syncerr.ErrReorg indicates the log no longer exists on the
	// canonical L1 chain (the retrieval raced a reorg).
	Retrieve(ctx context.Context, log types.StateUpdateLog) (types.StateUpdate, error)
}

// SequencerBlock is the subset of sequencer block metadata the driver
// cross-checks against the L1 witness.
type SequencerBlock struct {
	StateRoot types.GlobalRoot
	BlockHash *[32]byte
}

// SequencerClient provides the independent witness and contract code the
// driver needs from the sequencer.
type SequencerClient interface {
	BlockByNumber(ctx context.Context, n types.BlockNumber) (SequencerBlock, error)
	// Code returns a deployed contract's bytecode as the chunks the
	// sequencer API returns them in; the driver flattens them into one
	// buffer before persisting (see Driver.fetchCode).
	Code(ctx context.Context, addr types.ContractAddress, blockTag string) ([][32]byte, error)
}
