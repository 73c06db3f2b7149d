// Package feeder implements sync.StateUpdateRetriever and
// sync.SequencerClient against a StarkNet feeder-gateway style HTTP
// API. The feeder gateway has no established Go client library, so this
// is a small net/http + encoding/json client rather than a wrapped SDK.
package feeder

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	pathsync "github.com/nexusstark/pathsync/sync"
	"github.com/nexusstark/pathsync/syncerr"
	"github.com/nexusstark/pathsync/types"
)

// Client talks to a sequencer's feeder gateway at baseURL.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client against baseURL (no trailing slash expected),
// with a sane default per-request timeout matching the original
// source's blocking HTTP calls.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type storageDiffEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type deployedContractEntry struct {
	Address   string `json:"address"`
	ClassHash string `json:"class_hash"`
}

type stateUpdateResponse struct {
	BlockHash string `json:"block_hash"`
	NewRoot   string `json:"new_root"`
	StateDiff struct {
		StorageDiffs      map[string][]storageDiffEntry `json:"storage_diffs"`
		DeployedContracts []deployedContractEntry       `json:"deployed_contracts"`
	} `json:"state_diff"`
}

// Retrieve implements sync.StateUpdateRetriever: it fetches the full
// state diff for log's block number and flattens it into the ordered
// deployments and per-contract writes update() expects. Storage writes
// within one contract keep the order the feeder gateway returns them in.
func (c *Client) Retrieve(ctx context.Context, log types.StateUpdateLog) (types.StateUpdate, error) {
	var resp stateUpdateResponse
	if err := c.getJSON(ctx, "/feeder_gateway/get_state_update", map[string]string{
		"blockNumber": strconv.FormatUint(uint64(log.BlockNumber), 10),
	}, &resp); err != nil {
		// A block the gateway no longer knows means the L1 log we hold
		// points at reorged-away history: promote to a reorg signal.
		var se *statusError
		if errors.As(err, &se) && se.status == http.StatusNotFound {
			return types.StateUpdate{}, errors.Wrapf(syncerr.ErrReorg, "state update for block %d gone", log.BlockNumber)
		}
		return types.StateUpdate{}, errors.Wrapf(err, "get_state_update block %d", log.BlockNumber)
	}

	su := types.StateUpdate{
		DeployedContracts: make([]types.DeployedContract, 0, len(resp.StateDiff.DeployedContracts)),
	}
	for _, d := range resp.StateDiff.DeployedContracts {
		addr, err := parseFelt(d.Address)
		if err != nil {
			return types.StateUpdate{}, errors.Wrap(err, "parse deployed contract address")
		}
		classHash, err := parseFelt(d.ClassHash)
		if err != nil {
			return types.StateUpdate{}, errors.Wrap(err, "parse class hash")
		}
		su.DeployedContracts = append(su.DeployedContracts, types.DeployedContract{Address: addr, CodeHash: classHash})
	}

	for addrStr, writes := range resp.StateDiff.StorageDiffs {
		addr, err := parseFelt(addrStr)
		if err != nil {
			return types.StateUpdate{}, errors.Wrap(err, "parse storage diff address")
		}
		cu := types.ContractUpdate{Address: addr, Writes: make([]types.SlotWrite, 0, len(writes))}
		for _, w := range writes {
			slot, err := parseFelt(w.Key)
			if err != nil {
				return types.StateUpdate{}, errors.Wrap(err, "parse storage slot")
			}
			value, err := parseFelt(w.Value)
			if err != nil {
				return types.StateUpdate{}, errors.Wrap(err, "parse storage value")
			}
			cu.Writes = append(cu.Writes, types.SlotWrite{Slot: slot, Value: value})
		}
		su.ContractUpdates = append(su.ContractUpdates, cu)
	}

	return su, nil
}

type blockResponse struct {
	BlockHash string `json:"block_hash"`
	StateRoot string `json:"state_root"`
}

// BlockByNumber implements sync.SequencerClient.
func (c *Client) BlockByNumber(ctx context.Context, n types.BlockNumber) (pathsync.SequencerBlock, error) {
	var resp blockResponse
	if err := c.getJSON(ctx, "/feeder_gateway/get_block", map[string]string{
		"blockNumber": strconv.FormatUint(uint64(n), 10),
	}, &resp); err != nil {
		return pathsync.SequencerBlock{}, errors.Wrapf(err, "get_block %d", n)
	}

	root, err := parseFelt(resp.StateRoot)
	if err != nil {
		return pathsync.SequencerBlock{}, errors.Wrap(err, "parse state root")
	}

	block := pathsync.SequencerBlock{StateRoot: root}
	if resp.BlockHash != "" {
		h, err := parseHash32(resp.BlockHash)
		if err != nil {
			return pathsync.SequencerBlock{}, errors.Wrap(err, "parse block hash")
		}
		block.BlockHash = &h
	}
	return block, nil
}

type codeResponse struct {
	Bytecode []string `json:"bytecode"`
}

// Code implements sync.SequencerClient: it returns the contract's
// bytecode as the [32]byte words the feeder gateway serves them in; the
// driver flattens them (see sync.Driver.fetchCode).
func (c *Client) Code(ctx context.Context, addr types.ContractAddress, blockTag string) ([][32]byte, error) {
	var resp codeResponse
	addrBytes := addr.Bytes()
	if err := c.getJSON(ctx, "/feeder_gateway/get_code", map[string]string{
		"contractAddress": "0x" + hex.EncodeToString(addrBytes[:]),
		"blockNumber":     blockTag,
	}, &resp); err != nil {
		return nil, errors.Wrapf(err, "get_code %s", addr.String())
	}

	out := make([][32]byte, 0, len(resp.Bytecode))
	for _, w := range resp.Bytecode {
		h, err := parseHash32(w)
		if err != nil {
			return nil, errors.Wrap(err, "parse bytecode word")
		}
		out = append(out, h)
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query map[string]string, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		var b strings.Builder
		first := true
		for k, v := range query {
			if first {
				b.WriteByte('?')
				first = false
			} else {
				b.WriteByte('&')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
		}
		u += b.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode >= http.StatusInternalServerError {
			return errors.Wrapf(syncerr.ErrTransient, "feeder: %s returned %d: %s", path, resp.StatusCode, body)
		}
		return &statusError{path: path, status: resp.StatusCode, body: string(body)}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// statusError carries a non-5xx HTTP failure so callers can branch on
// the status (Retrieve promotes a 404 to a reorg signal).
type statusError struct {
	path   string
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("feeder: %s returned %d: %s", e.path, e.status, e.body)
}

func parseFelt(s string) (types.ContractAddress, error) {
	b, err := hexBytes32(s)
	if err != nil {
		return types.ContractAddress{}, err
	}
	var f types.ContractAddress
	if err := f.SetBytes(b); err != nil {
		return types.ContractAddress{}, err
	}
	return f, nil
}

func parseHash32(s string) ([32]byte, error) {
	return hexBytes32(s)
}

func hexBytes32(s string) ([32]byte, error) {
	var out [32]byte
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return out, errors.Wrapf(err, "decode hex %q", s)
	}
	if len(decoded) > 32 {
		return out, errors.Errorf("hex value %q wider than 32 bytes", s)
	}
	copy(out[32-len(decoded):], decoded)
	return out, nil
}
