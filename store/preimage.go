package store

import (
	"github.com/nexusstark/pathsync/kv"
	"github.com/nexusstark/pathsync/types"
)

// ContractsStatePreimage maps a contract-state-hash back to the
// (code-hash, storage-root) pair it commits to.
type ContractsStatePreimage struct {
	store kv.Store
}

func NewContractsStatePreimage(s kv.Store) *ContractsStatePreimage {
	return &ContractsStatePreimage{store: contractsPreimgBucket.NewStore(s)}
}

type preimageRow struct {
	CodeHash    types.CodeHash
	StorageRoot types.StorageRoot
}

// Insert writes (csh -> codeHash, storageRoot), idempotently: a repeat
// insert with identical content is a no-op (required for reorg replay,
// see package sync).
func (p *ContractsStatePreimage) Insert(csh types.ContractStateHash, codeHash types.CodeHash, storageRoot types.StorageRoot) error {
	return saveRLP(p.store, cshKey(csh), &preimageRow{CodeHash: codeHash, StorageRoot: storageRoot})
}

// GetRoot returns the storage root recorded for csh, or errNotFound.
func (p *ContractsStatePreimage) GetRoot(csh types.ContractStateHash) (types.StorageRoot, error) {
	var row preimageRow
	if err := loadRLP(p.store, cshKey(csh), &row); err != nil {
		return types.StorageRoot{}, err
	}
	return row.StorageRoot, nil
}

func cshKey(csh types.ContractStateHash) []byte {
	b := csh.Bytes()
	return b[:]
}
