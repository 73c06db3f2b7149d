package syncerr_test

import (
	"testing"

	"github.com/nexusstark/pathsync/felt"
	"github.com/nexusstark/pathsync/syncerr"
	"github.com/nexusstark/pathsync/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestIsReorgThroughWrapping(t *testing.T) {
	wrapped := errors.Wrap(syncerr.ErrReorg, "fetch next batch")
	require.True(t, syncerr.IsReorg(wrapped))
	require.False(t, syncerr.IsTransient(wrapped))
}

func TestIsTransientThroughWrapping(t *testing.T) {
	wrapped := errors.Wrapf(syncerr.ErrTransient, "sequencer block %d", 7)
	require.True(t, syncerr.IsTransient(wrapped))
	require.False(t, syncerr.IsReorg(wrapped))
}

func TestVerificationErrorRoundTrip(t *testing.T) {
	err := &syncerr.VerificationError{
		Block:    42,
		Source:   "sequencer",
		Expected: felt.FromUint64(1),
		Actual:   felt.FromUint64(2),
	}
	wrapped := errors.Wrap(err, "update")

	got, ok := syncerr.IsVerification(wrapped)
	require.True(t, ok)
	require.Equal(t, types.BlockNumber(42), got.Block)
	require.Equal(t, "sequencer", got.Source)
	require.Contains(t, err.Error(), "block 42")
}

func TestInvariantError(t *testing.T) {
	err := syncerr.NewInvariant(5, "missing code hash for %s", "0xabc")
	require.Contains(t, err.Error(), "block 5")
	require.Contains(t, err.Error(), "missing code hash")
}
