package l1feed

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	pstypes "github.com/nexusstark/pathsync/types"
)

func TestDecodeLogStateUpdate(t *testing.T) {
	root := big.NewInt(0xABCD)
	blockNumber := big.NewInt(42)

	data := make([]byte, 64)
	root.FillBytes(data[0:32])
	blockNumber.FillBytes(data[32:64])

	lg := types.Log{
		Address:     common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Data:        data,
		BlockNumber: 900,
		TxHash:      common.HexToHash("0xaa"),
		TxIndex:     3,
		BlockHash:   common.HexToHash("0xbb"),
		Index:       7,
	}

	sul, err := decodeLogStateUpdate(lg)
	require.NoError(t, err)
	require.Equal(t, pstypes.BlockNumber(42), sul.BlockNumber)
	require.Equal(t, uint64(900), sul.Provenance.BlockNumber)
	require.Equal(t, uint64(3), sul.Provenance.TxIndex)
	require.Equal(t, uint64(7), sul.Provenance.LogIndex)
	require.Equal(t, common.HexToHash("0xaa"), common.Hash(sul.Provenance.TxHash))
	require.Equal(t, common.HexToHash("0xbb"), common.Hash(sul.Provenance.BlockHash))

	var want pstypes.GlobalRoot
	var rootBytes [32]byte
	root.FillBytes(rootBytes[:])
	require.NoError(t, want.SetBytes(rootBytes))
	require.True(t, sul.GlobalRoot.Equal(want))
}

func TestDecodeLogStateUpdateRejectsShortPayload(t *testing.T) {
	_, err := decodeLogStateUpdate(types.Log{Data: []byte{1, 2, 3}})
	require.Error(t, err)
}
