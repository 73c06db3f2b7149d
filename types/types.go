// Package types collects the small, mostly-Felt-wrapping value types that
// make up the data model: contract identity, storage, hashes, roots and
// the L1 provenance attached to every ingested log.
package types

import "github.com/nexusstark/pathsync/felt"

// ContractAddress identifies a deployed contract.
type ContractAddress = felt.Felt

// StorageSlot is a key within a ContractTree.
type StorageSlot = felt.Felt

// StorageValue is a value within a ContractTree. The zero value denotes
// both "unset" and "explicitly zero" — the two are indistinguishable by
// design (see package trie).
type StorageValue = felt.Felt

// CodeHash identifies a contract's immutable code.
type CodeHash = felt.Felt

// StorageRoot is the root of a ContractTree. Zero denotes the empty tree.
type StorageRoot = felt.Felt

// ContractStateHash is the value a GlobalTree stores for a contract
// address: H(H(H(CodeHash, StorageRoot), 0), 0).
type ContractStateHash = felt.Felt

// GlobalRoot is the root of the GlobalTree; the StarkNet global state root.
type GlobalRoot = felt.Felt

// BlockNumber is a StarkNet block height, monotonically non-decreasing
// across persisted history.
type BlockNumber uint64

// L1Provenance identifies the exact L1 (Ethereum-like) log that witnessed
// a StateUpdateLog.
// BlockHash and TxHash are plain 32-byte hashes, not Felts: L1 hashes may
// exceed the StarkNet field modulus and must not be confused with it.
type L1Provenance struct {
	BlockHash   [32]byte
	BlockNumber uint64
	TxHash      [32]byte
	TxIndex     uint64
	LogIndex    uint64
}

func NewL1Provenance(blockHash [32]byte, blockNumber uint64, txHash [32]byte, txIndex, logIndex uint64) L1Provenance {
	return L1Provenance{
		BlockHash:   blockHash,
		BlockNumber: blockNumber,
		TxHash:      txHash,
		TxIndex:     txIndex,
		LogIndex:    logIndex,
	}
}

// StateUpdateLog is the compact witness the L1 fetcher hands the driver
// for each advancing block: enough to cross-check the locally
// reconstructed root without yet knowing the full state delta.
type StateUpdateLog struct {
	Provenance  L1Provenance
	GlobalRoot  GlobalRoot
	BlockNumber BlockNumber
}

// DeployedContract is a newly deployed contract named by a StateUpdate.
// The address must not have been previously deployed.
type DeployedContract struct {
	Address  ContractAddress
	CodeHash CodeHash
}

// SlotWrite is one (slot, value) write, order-significant within a
// ContractUpdate.
type SlotWrite struct {
	Slot  StorageSlot
	Value StorageValue
}

// ContractUpdate is an ordered list of storage writes against an address
// that must already be deployed at commit time.
type ContractUpdate struct {
	Address ContractAddress
	Writes  []SlotWrite
}

// StateUpdate is the full payload referenced by a StateUpdateLog:
// contracts to deploy, plus storage deltas to apply.
type StateUpdate struct {
	DeployedContracts []DeployedContract
	ContractUpdates   []ContractUpdate
}
