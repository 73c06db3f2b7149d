// Package l1feed implements sync.L1LogFetcher against an Ethereum-like
// L1 chain: it polls a JSON-RPC endpoint for the StarkNet core
// contract's LogStateUpdate event. The driver only ever sees decoded
// StateUpdateLogs; it never touches ethclient directly.
package l1feed

import (
	"context"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"

	"github.com/nexusstark/pathsync/syncerr"
	pstypes "github.com/nexusstark/pathsync/types"
)

// logStateUpdateTopic is keccak256("LogStateUpdate(uint256,int256)"), the
// StarkNet core contract's state-update event signature: the two words
// of its data are the new global root and the StarkNet block number.
var logStateUpdateTopic = crypto.Keccak256Hash([]byte("LogStateUpdate(uint256,int256)"))

// maxBatchBlocks bounds how many L1 blocks one eth_getLogs call scans, so
// a long-stalled driver catching up doesn't issue one unbounded query.
const maxBatchBlocks = 2000

// fetchRetries bounds the in-fetcher retry loop; once exhausted the
// failure surfaces to the driver as syncerr.ErrTransient.
const fetchRetries = 3

// Client polls rpcURL for logs emitted by coreContract. It implements
// sync.L1LogFetcher; the full StateUpdate payload a log points at is
// fetched from the sequencer's feeder gateway (package feeder), not
// from L1.
type Client struct {
	eth          *ethclient.Client
	coreContract common.Address
	startBlock   uint64

	cursor uint64
}

// Dial connects to rpcURL and returns a Client scanning coreContract from
// startBlock until Seek repositions it from persisted history.
func Dial(ctx context.Context, rpcURL string, coreContract common.Address, startBlock uint64) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrap(err, "dial L1 RPC")
	}
	return &Client{eth: eth, coreContract: coreContract, startBlock: startBlock, cursor: startBlock}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() { c.eth.Close() }

// Seek implements sync.L1LogFetcher: it repositions the cursor
// immediately after the log identified by after, or at the configured
// start block when after is nil (fresh start or rewound to genesis).
func (c *Client) Seek(_ context.Context, after *pstypes.L1Provenance) error {
	if after == nil {
		c.cursor = c.startBlock
		return nil
	}
	c.cursor = after.BlockNumber + 1
	return nil
}

// Fetch implements sync.L1LogFetcher. It scans [cursor, head] in batches
// of at most maxBatchBlocks, decoding every LogStateUpdate event found.
// An empty, nil-error result means the cursor has caught up with L1's
// head; Sync then returns so the caller can re-invoke later.
func (c *Client) Fetch(ctx context.Context) ([]pstypes.StateUpdateLog, error) {
	var head *types.Header
	if err := c.withRetry(ctx, "fetch L1 head", func() (err error) {
		head, err = c.eth.HeaderByNumber(ctx, nil)
		return err
	}); err != nil {
		return nil, err
	}
	headNum := head.Number.Uint64()
	if c.cursor > headNum {
		return nil, nil
	}

	to := c.cursor + maxBatchBlocks - 1
	if to > headNum {
		to = headNum
	}

	var logs []types.Log
	if err := c.withRetry(ctx, "filter L1 logs", func() (err error) {
		logs, err = c.eth.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(c.cursor),
			ToBlock:   new(big.Int).SetUint64(to),
			Addresses: []common.Address{c.coreContract},
			Topics:    [][]common.Hash{{logStateUpdateTopic}},
		})
		return err
	}); err != nil {
		return nil, err
	}

	out := make([]pstypes.StateUpdateLog, 0, len(logs))
	for _, lg := range logs {
		sul, err := decodeLogStateUpdate(lg)
		if err != nil {
			return nil, errors.Wrap(err, "decode LogStateUpdate")
		}
		out = append(out, sul)
	}

	c.cursor = to + 1
	if len(out) == 0 && to < headNum {
		// This batch held no logs but L1 has more blocks: keep scanning.
		return c.Fetch(ctx)
	}
	return out, nil
}

// CanonicalBlockHash implements sync.L1LogFetcher, used by the reorg
// protocol to test whether a persisted L1 block hash is still canonical.
func (c *Client) CanonicalBlockHash(ctx context.Context, l1BlockNumber uint64) ([32]byte, error) {
	h, err := c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(l1BlockNumber))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			// No longer canonical at all: the reorg protocol's walk will
			// keep stepping further back.
			return [32]byte{}, nil
		}
		return [32]byte{}, errors.Wrap(err, "fetch L1 header")
	}
	return h.Hash(), nil
}

// withRetry runs fn up to fetchRetries times with doubling backoff.
// Exhausting the retries surfaces the last failure wrapped in
// syncerr.ErrTransient, so the driver reports it without treating it as
// a verification or invariant problem.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	backoff := time.Second
	var err error
	for i := 0; i < fetchRetries; i++ {
		if err = fn(); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return errors.Wrapf(syncerr.ErrTransient, "%s: %v", op, err)
}

func decodeLogStateUpdate(lg types.Log) (pstypes.StateUpdateLog, error) {
	if len(lg.Data) < 64 {
		return pstypes.StateUpdateLog{}, errors.New("short LogStateUpdate payload")
	}

	var rootBytes [32]byte
	copy(rootBytes[:], lg.Data[0:32])
	var root pstypes.GlobalRoot
	if err := root.SetBytes(rootBytes); err != nil {
		return pstypes.StateUpdateLog{}, errors.Wrap(err, "decode global root")
	}

	blockNumber := new(big.Int).SetBytes(lg.Data[32:64]).Uint64()

	return pstypes.StateUpdateLog{
		Provenance: pstypes.NewL1Provenance(
			lg.BlockHash, lg.BlockNumber, lg.TxHash, uint64(lg.TxIndex), uint64(lg.Index),
		),
		GlobalRoot:  root,
		BlockNumber: pstypes.BlockNumber(blockNumber),
	}, nil
}
