package store

import (
	"bytes"

	"github.com/nexusstark/pathsync/kv"
	"github.com/nexusstark/pathsync/types"
	"github.com/pkg/errors"
)

// ErrCodeHashMismatch is returned by Insert when an address is already
// deployed with a different code hash than the one being inserted.
var ErrCodeHashMismatch = errors.New("store: code hash mismatch for already-deployed address")

// Contracts maps a contract address to its immutable code and metadata.
type Contracts struct {
	store kv.Store
}

func NewContracts(s kv.Store) *Contracts {
	return &Contracts{store: contractsBucket.NewStore(s)}
}

type contractRow struct {
	CodeHash   types.CodeHash
	Bytecode   []byte
	ABI        []byte
	Definition []byte
}

// Insert deploys address with the given code and metadata. It is
// idempotent on identical (address, code_hash) content rather than
// strictly unique: a repeat deployment with the same code hash (as
// replayed after an L1 reorg) is a no-op, but a mismatched code hash
// for an already-deployed address is fatal.
func (c *Contracts) Insert(addr types.ContractAddress, codeHash types.CodeHash, bytecode, abi, definition []byte) error {
	existing, err := c.get(addr)
	if err == nil {
		existingHash, newHash := existing.CodeHash.Bytes(), codeHash.Bytes()
		if !bytes.Equal(existingHash[:], newHash[:]) {
			return ErrCodeHashMismatch
		}
		return nil
	}
	if !IsNotFound(err) {
		return err
	}

	row := contractRow{CodeHash: codeHash, Bytecode: bytecode, ABI: abi, Definition: definition}
	return saveRLP(c.store, addressKey(addr), &row)
}

func (c *Contracts) get(addr types.ContractAddress) (*contractRow, error) {
	var row contractRow
	if err := loadRLP(c.store, addressKey(addr), &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetHash returns the code hash for addr, or errNotFound if it was never
// deployed.
func (c *Contracts) GetHash(addr types.ContractAddress) (types.CodeHash, error) {
	row, err := c.get(addr)
	if err != nil {
		return types.CodeHash{}, err
	}
	return row.CodeHash, nil
}

func addressKey(addr types.ContractAddress) []byte {
	b := addr.Bytes()
	return b[:]
}
