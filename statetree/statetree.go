// Package statetree provides the two typed facades over package trie:
// GlobalTree (contract address -> contract-state-hash) and ContractTree
// (storage slot -> storage value). Both are thin wrappers that exist so
// callers never pass the wrong kind of key/value into the shared trie
// machinery.
package statetree

import (
	"github.com/nexusstark/pathsync/felt"
	"github.com/nexusstark/pathsync/kv"
	"github.com/nexusstark/pathsync/nodestore"
	"github.com/nexusstark/pathsync/pedersen"
	"github.com/nexusstark/pathsync/trie"
	"github.com/nexusstark/pathsync/types"
)

// GlobalTree maps contract addresses to contract-state-hashes.
type GlobalTree struct {
	t *trie.Tree
}

// LoadGlobalTree opens the GlobalTree rooted at r.
func LoadGlobalTree(store *nodestore.Store, tx kv.Store, r types.GlobalRoot) *GlobalTree {
	return &GlobalTree{t: trie.Load(store, tx, r)}
}

func (g *GlobalTree) Get(addr types.ContractAddress) (types.ContractStateHash, error) {
	return g.t.Get(addr)
}

func (g *GlobalTree) Set(addr types.ContractAddress, csh types.ContractStateHash) {
	g.t.Set(addr, csh)
}

func (g *GlobalTree) Apply() (types.GlobalRoot, error) {
	return g.t.Apply()
}

func (g *GlobalTree) Root() types.GlobalRoot {
	return g.t.Root()
}

// ContractTree maps a single contract's storage slots to values.
type ContractTree struct {
	t *trie.Tree
}

// LoadContractTree opens the ContractTree rooted at r.
func LoadContractTree(store *nodestore.Store, tx kv.Store, r types.StorageRoot) *ContractTree {
	return &ContractTree{t: trie.Load(store, tx, r)}
}

func (c *ContractTree) Get(slot types.StorageSlot) (types.StorageValue, error) {
	return c.t.Get(slot)
}

func (c *ContractTree) Set(slot types.StorageSlot, value types.StorageValue) {
	c.t.Set(slot, value)
}

func (c *ContractTree) Apply() (types.StorageRoot, error) {
	return c.t.Apply()
}

func (c *ContractTree) Root() types.StorageRoot {
	return c.t.Root()
}

// ContractStateHash computes H(H(H(codeHash, storageRoot), 0), 0), the
// value a GlobalTree stores for a deployed contract.
func ContractStateHash(codeHash types.CodeHash, storageRoot types.StorageRoot) types.ContractStateHash {
	return pedersen.Hash(pedersen.Hash(pedersen.Hash(codeHash, storageRoot), felt.Zero()), felt.Zero())
}
