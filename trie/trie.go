// Package trie implements the binary Merkle-Patricia trie: a 251-bit-keyed
// tree with path compression (Edge nodes), backed by the content-addressed
// node store and copy-on-write semantics. It underlies both trie facades
// (package statetree): the global contract tree and per-contract storage
// trees.
package trie

import (
	"bytes"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/nexusstark/pathsync/felt"
	"github.com/nexusstark/pathsync/kv"
	"github.com/nexusstark/pathsync/nodestore"
)

// Tree is an in-memory view of a trie rooted at a particular Felt,
// loaded over one storage transaction. Updates are buffered by Set and
// only materialized into new, hashed nodes by Apply.
type Tree struct {
	store *nodestore.Store
	tx    kv.Store
	root  felt.Felt

	pending map[[32]byte]felt.Felt
}

// Load creates a tree view rooted at r within tx. A zero r yields the
// empty tree; load never touches storage for that case.
func Load(store *nodestore.Store, tx kv.Store, r felt.Felt) *Tree {
	return &Tree{store: store, tx: tx, root: r, pending: make(map[[32]byte]felt.Felt)}
}

// Root returns the tree's current committed root (the root as of the
// last Apply, or the root it was loaded at if Apply has not run).
func (t *Tree) Root() felt.Felt {
	return t.root
}

// Get returns key's value, honoring any buffered (not yet applied)
// update to key. Missing keys and keys explicitly set to zero are
// indistinguishable, both returning the zero Felt.
func (t *Tree) Get(key felt.Felt) (felt.Felt, error) {
	if v, ok := t.pending[key.Bytes()]; ok {
		return v, nil
	}
	return t.getAt(t.root, keyBits(key))
}

// Set buffers key's value for the next Apply. Setting to zero is a
// deletion. Calling Set again for the same key before Apply overwrites
// the buffered value; only the final value per key is materialized.
func (t *Tree) Set(key, value felt.Felt) {
	t.pending[key.Bytes()] = value
}

// Apply materializes all buffered updates, in ascending key order (for
// determinism independent of Set call order), persists the resulting
// nodes via the node store, and returns the new root. With no buffered
// updates it is a no-op returning the prior root.
func (t *Tree) Apply() (felt.Felt, error) {
	if len(t.pending) == 0 {
		return t.root, nil
	}

	keys := make([][32]byte, 0, len(t.pending))
	for k := range t.pending {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})

	root := t.root
	for _, kb := range keys {
		value := t.pending[kb]
		var key felt.Felt
		if err := key.SetBytes(kb); err != nil {
			return felt.Felt{}, err
		}
		newRoot, err := t.putAt(root, keyBits(key), value)
		if err != nil {
			return felt.Felt{}, err
		}
		root = newRoot
	}

	t.pending = make(map[[32]byte]felt.Felt)
	t.root = root
	return root, nil
}

func (t *Tree) getAt(nodeHash felt.Felt, remaining *bitset.BitSet) (felt.Felt, error) {
	if nodeHash.IsZero() {
		return felt.Zero(), nil
	}

	node, err := t.store.Get(t.tx, nodeHash)
	if err != nil {
		return felt.Felt{}, err
	}

	switch node.Kind {
	case nodestore.KindLeaf:
		return node.Value, nil

	case nodestore.KindEdge:
		if remaining.Len() < uint(node.Length) {
			return felt.Zero(), nil
		}
		edgePath := feltToPath(node.Path, node.Length)
		candidate := subPath(remaining, 0, uint(node.Length))
		if !bitsetEqual(candidate, edgePath) {
			return felt.Zero(), nil
		}
		return t.getAt(node.Child, dropPrefix(remaining, uint(node.Length)))

	case nodestore.KindBinary:
		if remaining.Len() == 0 {
			return felt.Zero(), nil
		}
		if remaining.Test(0) {
			return t.getAt(node.Right, dropPrefix(remaining, 1))
		}
		return t.getAt(node.Left, dropPrefix(remaining, 1))

	default:
		return felt.Zero(), nil
	}
}

// putAt inserts or deletes value along remaining within the subtree
// rooted at nodeHash, returning the new subtree root (zero if the
// subtree became empty).
func (t *Tree) putAt(nodeHash felt.Felt, remaining *bitset.BitSet, value felt.Felt) (felt.Felt, error) {
	if nodeHash.IsZero() {
		if value.IsZero() {
			return felt.Zero(), nil
		}
		leafHash, err := t.store.Put(t.tx, &nodestore.Node{Kind: nodestore.KindLeaf, Value: value})
		if err != nil {
			return felt.Felt{}, err
		}
		return t.buildEdge(remaining, leafHash)
	}

	node, err := t.store.Get(t.tx, nodeHash)
	if err != nil {
		return felt.Felt{}, err
	}

	switch node.Kind {
	case nodestore.KindLeaf:
		if value.IsZero() {
			return felt.Zero(), nil
		}
		return t.store.Put(t.tx, &nodestore.Node{Kind: nodestore.KindLeaf, Value: value})

	case nodestore.KindEdge:
		return t.putAtEdge(node, remaining, value)

	case nodestore.KindBinary:
		return t.putAtBinary(node, remaining, value)

	default:
		return felt.Felt{}, errUnknownKind
	}
}

func (t *Tree) putAtEdge(node *nodestore.Node, remaining *bitset.BitSet, value felt.Felt) (felt.Felt, error) {
	edgePath := feltToPath(node.Path, node.Length)
	common := commonPrefixLen(remaining, edgePath)

	if common == uint(node.Length) {
		childRemaining := dropPrefix(remaining, uint(node.Length))
		newChild, err := t.putAt(node.Child, childRemaining, value)
		if err != nil {
			return felt.Felt{}, err
		}
		if newChild.IsZero() {
			return felt.Zero(), nil
		}
		return t.buildEdge(edgePath, newChild)
	}

	if value.IsZero() {
		// The key being deleted does not exist in this subtree at all.
		return nodestore.Hash(node), nil
	}

	leafHash, err := t.store.Put(t.tx, &nodestore.Node{Kind: nodestore.KindLeaf, Value: value})
	if err != nil {
		return felt.Felt{}, err
	}
	newBranch, err := t.buildEdge(dropPrefix(remaining, common+1), leafHash)
	if err != nil {
		return felt.Felt{}, err
	}
	oldBranch, err := t.buildEdge(dropPrefix(edgePath, common+1), node.Child)
	if err != nil {
		return felt.Felt{}, err
	}

	var left, right felt.Felt
	if remaining.Test(common) {
		left, right = oldBranch, newBranch
	} else {
		left, right = newBranch, oldBranch
	}
	binHash, err := t.store.Put(t.tx, &nodestore.Node{Kind: nodestore.KindBinary, Left: left, Right: right})
	if err != nil {
		return felt.Felt{}, err
	}
	return t.buildEdge(subPath(remaining, 0, common), binHash)
}

func (t *Tree) putAtBinary(node *nodestore.Node, remaining *bitset.BitSet, value felt.Felt) (felt.Felt, error) {
	if remaining.Len() == 0 {
		return felt.Felt{}, errUnknownKind
	}

	left, right := node.Left, node.Right
	childRemaining := dropPrefix(remaining, 1)
	if remaining.Test(0) {
		newRight, err := t.putAt(node.Right, childRemaining, value)
		if err != nil {
			return felt.Felt{}, err
		}
		right = newRight
	} else {
		newLeft, err := t.putAt(node.Left, childRemaining, value)
		if err != nil {
			return felt.Felt{}, err
		}
		left = newLeft
	}

	switch {
	case left.IsZero() && right.IsZero():
		return felt.Zero(), nil
	case left.IsZero():
		return t.mergeSingleChild(right, true)
	case right.IsZero():
		return t.mergeSingleChild(left, false)
	default:
		return t.store.Put(t.tx, &nodestore.Node{Kind: nodestore.KindBinary, Left: left, Right: right})
	}
}

// mergeSingleChild replaces a Binary node that lost one child with a
// single-bit Edge over the surviving child, merging with that child's
// own Edge if it is one (no two consecutive Edges survive).
func (t *Tree) mergeSingleChild(childHash felt.Felt, bit bool) (felt.Felt, error) {
	return t.buildEdge(concatBit(bitset.New(0), bit), childHash)
}

// buildEdge constructs the canonical node representing path bits leading
// to childHash: a zero-length path collapses to childHash itself, and an
// Edge child is merged into a single longer Edge rather than left as two
// consecutive Edges.
func (t *Tree) buildEdge(path *bitset.BitSet, childHash felt.Felt) (felt.Felt, error) {
	if childHash.IsZero() {
		return felt.Zero(), nil
	}
	if path.Len() == 0 {
		return childHash, nil
	}

	child, err := t.store.Get(t.tx, childHash)
	if err != nil {
		return felt.Felt{}, err
	}
	if child.Kind == nodestore.KindEdge {
		childPath := feltToPath(child.Path, child.Length)
		merged := concatPaths(path, childPath)
		return t.buildEdge(merged, child.Child)
	}

	edge := &nodestore.Node{Kind: nodestore.KindEdge, Path: pathToFelt(path), Length: uint8(path.Len()), Child: childHash}
	return t.store.Put(t.tx, edge)
}
