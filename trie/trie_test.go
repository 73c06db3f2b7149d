package trie_test

import (
	"testing"

	"github.com/nexusstark/pathsync/felt"
	"github.com/nexusstark/pathsync/kv"
	"github.com/nexusstark/pathsync/lvldb"
	"github.com/nexusstark/pathsync/nodestore"
	"github.com/nexusstark/pathsync/trie"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T, root felt.Felt) (*trie.Tree, *lvldb.LevelDB) {
	t.Helper()
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := nodestore.Open(kv.Bucket("n:"), nodestore.Options{})
	require.NoError(t, err)

	return trie.Load(store, db, root), db
}

func TestEmptyTrieRoundtrip(t *testing.T) {
	tr, _ := newTestTree(t, felt.Zero())

	v, err := tr.Get(felt.FromUint64(42))
	require.NoError(t, err)
	require.True(t, v.IsZero())

	root, err := tr.Apply()
	require.NoError(t, err)
	require.True(t, root.IsZero())
}

func TestSingleLeaf(t *testing.T) {
	tr, db := newTestTree(t, felt.Zero())

	key := felt.FromUint64(1)
	value := felt.FromUint64(0xABCD)
	tr.Set(key, value)

	root, err := tr.Apply()
	require.NoError(t, err)
	require.False(t, root.IsZero())

	store, err := nodestore.Open(kv.Bucket("n:"), nodestore.Options{})
	require.NoError(t, err)
	reloaded := trie.Load(store, db, root)

	got, err := reloaded.Get(key)
	require.NoError(t, err)
	require.True(t, got.Equal(value))

	miss, err := reloaded.Get(felt.FromUint64(2))
	require.NoError(t, err)
	require.True(t, miss.IsZero())
}

func TestDeleteToEmpty(t *testing.T) {
	tr, db := newTestTree(t, felt.Zero())

	key := felt.FromUint64(1)
	tr.Set(key, felt.FromUint64(0xAB))
	r1, err := tr.Apply()
	require.NoError(t, err)
	require.False(t, r1.IsZero())

	store, err := nodestore.Open(kv.Bucket("n:"), nodestore.Options{})
	require.NoError(t, err)
	tr2 := trie.Load(store, db, r1)
	tr2.Set(key, felt.Zero())

	r2, err := tr2.Apply()
	require.NoError(t, err)
	require.True(t, r2.IsZero())
}

func TestPendingGetBeforeApply(t *testing.T) {
	tr, _ := newTestTree(t, felt.Zero())

	key := felt.FromUint64(9)
	tr.Set(key, felt.FromUint64(7))

	v, err := tr.Get(key)
	require.NoError(t, err)
	require.True(t, v.Equal(felt.FromUint64(7)))
}

func TestApplyIsOrderIndependentAcrossPermutations(t *testing.T) {
	writes := []struct {
		key, value uint64
	}{
		{1, 10}, {2, 20}, {3, 30}, {4, 40}, {5, 50},
	}

	run := func(order []int) felt.Felt {
		tr, _ := newTestTree(t, felt.Zero())
		for _, i := range order {
			w := writes[i]
			tr.Set(felt.FromUint64(w.key), felt.FromUint64(w.value))
		}
		root, err := tr.Apply()
		require.NoError(t, err)
		return root
	}

	rootA := run([]int{0, 1, 2, 3, 4})
	rootB := run([]int{4, 3, 2, 1, 0})
	require.True(t, rootA.Equal(rootB), "final root must not depend on Set call order")
}

func TestLaterSetWinsWithinOneApply(t *testing.T) {
	tr, db := newTestTree(t, felt.Zero())

	key := felt.FromUint64(1)
	tr.Set(key, felt.FromUint64(10))
	tr.Set(key, felt.FromUint64(11))

	root, err := tr.Apply()
	require.NoError(t, err)

	store, err := nodestore.Open(kv.Bucket("n:"), nodestore.Options{})
	require.NoError(t, err)
	reloaded := trie.Load(store, db, root)

	v, err := reloaded.Get(key)
	require.NoError(t, err)
	require.True(t, v.Equal(felt.FromUint64(11)))
}

func TestMultipleApplyWithNoUpdatesIsNoop(t *testing.T) {
	tr, _ := newTestTree(t, felt.Zero())
	tr.Set(felt.FromUint64(1), felt.FromUint64(100))
	r1, err := tr.Apply()
	require.NoError(t, err)

	r2, err := tr.Apply()
	require.NoError(t, err)
	require.True(t, r1.Equal(r2))
}

func TestManyKeysSurviveSplitsAndMerges(t *testing.T) {
	tr, db := newTestTree(t, felt.Zero())

	keys := []uint64{1, 2, 3, 100, 101, 12345, 999999}
	for _, k := range keys {
		tr.Set(felt.FromUint64(k), felt.FromUint64(k*7+1))
	}
	root, err := tr.Apply()
	require.NoError(t, err)

	store, err := nodestore.Open(kv.Bucket("n:"), nodestore.Options{})
	require.NoError(t, err)
	reloaded := trie.Load(store, db, root)

	for _, k := range keys {
		v, err := reloaded.Get(felt.FromUint64(k))
		require.NoError(t, err)
		require.True(t, v.Equal(felt.FromUint64(k*7+1)))
	}

	// delete one key, the rest must remain reachable
	tr2 := trie.Load(store, db, root)
	tr2.Set(felt.FromUint64(100), felt.Zero())
	root2, err := tr2.Apply()
	require.NoError(t, err)

	tr3 := trie.Load(store, db, root2)
	v, err := tr3.Get(felt.FromUint64(100))
	require.NoError(t, err)
	require.True(t, v.IsZero())

	v, err = tr3.Get(felt.FromUint64(101))
	require.NoError(t, err)
	require.True(t, v.Equal(felt.FromUint64(101*7+1)))
}
