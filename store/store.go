// Package store implements the three persisted state tables: global state
// history (block -> root with L1 provenance), contract-state preimages
// (state-hash -> code-hash/storage-root), and contract blobs
// (address -> code-hash/bytecode/abi/definition). Rows are RLP-encoded
// over a kv.Store.
package store

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/nexusstark/pathsync/kv"
	"github.com/nexusstark/pathsync/types"
	"github.com/pkg/errors"
)

var errNotFound = errors.New("store: not found")

// IsNotFound reports whether err signals an absent row.
func IsNotFound(err error) bool {
	return errors.Cause(err) == errNotFound
}

func saveRLP(w kv.Putter, key []byte, val interface{}) error {
	data, err := rlp.EncodeToBytes(val)
	if err != nil {
		return errors.Wrap(err, "encode row")
	}
	return w.Put(key, data)
}

func loadRLP(r kv.Getter, key []byte, val interface{}) error {
	data, err := r.Get(key)
	if err != nil {
		return errNotFound
	}
	if err := rlp.DecodeBytes(data, val); err != nil {
		return errors.Wrap(err, "decode row")
	}
	return nil
}

// blockNumberKey renders a BlockNumber as a fixed-width, order-preserving
// big-endian key.
func blockNumberKey(n types.BlockNumber) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf
}

const (
	globalHistoryBucket   = kv.Bucket("g:")
	contractsPreimgBucket = kv.Bucket("p:")
	contractsBucket       = kv.Bucket("c:")
)

var latestKey = []byte("latest")
