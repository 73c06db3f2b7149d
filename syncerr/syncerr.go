// Package syncerr defines the error taxonomy the driver (package sync)
// classifies every failure into: Reorg (recovered locally, never fatal),
// VerificationMismatch (fatal, precise diagnostic), Transient (retried
// below the driver, surfaces only after the fetcher exhausts backoff),
// and Invariant (fatal, a malformed update or missing dependency).
package syncerr

import (
	"fmt"

	"github.com/nexusstark/pathsync/types"
	"github.com/pkg/errors"
)

// ErrReorg is returned (or wrapped) by a collaborator to signal that L1
// history under the driver changed. It is recovered by the reorg
// protocol and never surfaced to the operator as fatal.
var ErrReorg = errors.New("syncerr: L1 reorganization detected")

// ErrTransient marks a retryable I/O failure (network timeout, 5xx,
// database busy). The fetcher layer is expected to retry with backoff;
// it surfaces as a sync error only once retries are exhausted.
var ErrTransient = errors.New("syncerr: transient I/O failure")

// IsReorg reports whether err is, or wraps, ErrReorg.
func IsReorg(err error) bool { return errors.Is(err, ErrReorg) }

// IsTransient reports whether err is, or wraps, ErrTransient.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// VerificationError is the fatal diagnostic raised when the locally
// reconstructed global root disagrees with a witness. It always halts
// the driver: a mismatch indicates either a corrupted local trie, an L1
// inconsistency, or a lying sequencer, and the operator must intervene.
type VerificationError struct {
	Block    types.BlockNumber
	Source   string // "l1" or "sequencer"
	Expected types.GlobalRoot
	Actual   types.GlobalRoot
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("syncerr: %s root mismatch at block %d: expected %s, computed %s",
		e.Source, e.Block, e.Expected, e.Actual)
}

// IsVerification reports whether err is, or wraps, a *VerificationError,
// and returns it when so (for operator-facing diagnostics).
func IsVerification(err error) (*VerificationError, bool) {
	var v *VerificationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// InvariantError marks a fatal, non-reorg structural problem: a storage
// update referencing an undeployed contract, a sequencer block reported
// without a block hash, or similarly malformed input. A node missing
// from the node store surfaces as nodestore.ErrNotFound instead.
type InvariantError struct {
	Block types.BlockNumber
	Msg   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("syncerr: invariant violation at block %d: %s", e.Block, e.Msg)
}

// NewInvariant constructs an *InvariantError for block, wrapping no
// underlying cause (the message alone is diagnostic).
func NewInvariant(block types.BlockNumber, format string, args ...interface{}) error {
	return &InvariantError{Block: block, Msg: fmt.Sprintf(format, args...)}
}
