package statetree_test

import (
	"testing"

	"github.com/nexusstark/pathsync/felt"
	"github.com/nexusstark/pathsync/kv"
	"github.com/nexusstark/pathsync/lvldb"
	"github.com/nexusstark/pathsync/nodestore"
	"github.com/nexusstark/pathsync/statetree"
	"github.com/stretchr/testify/require"
)

func TestGlobalTreeDeployAndLookup(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	store, err := nodestore.Open(kv.Bucket("n:"), nodestore.Options{})
	require.NoError(t, err)

	gt := statetree.LoadGlobalTree(store, db, felt.Zero())

	addr := felt.FromUint64(1)
	csh := statetree.ContractStateHash(felt.FromUint64(0xC0DE), felt.Zero())
	gt.Set(addr, csh)

	root, err := gt.Apply()
	require.NoError(t, err)
	require.False(t, root.IsZero())

	reloaded := statetree.LoadGlobalTree(store, db, root)
	got, err := reloaded.Get(addr)
	require.NoError(t, err)
	require.True(t, got.Equal(csh))
}

func TestContractStateHashDeterministic(t *testing.T) {
	a := statetree.ContractStateHash(felt.FromUint64(1), felt.FromUint64(2))
	b := statetree.ContractStateHash(felt.FromUint64(1), felt.FromUint64(2))
	require.True(t, a.Equal(b))

	c := statetree.ContractStateHash(felt.FromUint64(1), felt.FromUint64(3))
	require.False(t, a.Equal(c))
}
