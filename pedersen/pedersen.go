// Package pedersen implements the StarkNet Pedersen hash over two field
// elements, used to build both trie node commitments (package trie) and
// the contract-state-hash preimage (package statetree).
//
// The hash is a sum of elliptic-curve scalar multiplications on the Stark
// curve: each 252-bit input is split into a 4-bit high chunk and a
// 248-bit low chunk, each chunk is multiplied by its own fixed base
// point, and the four partial points plus a shift point are summed. The
// result's affine X coordinate, reduced into the field, is the hash.
package pedersen

import (
	"math/big"
	"sync"

	starkcurve "github.com/consensys/gnark-crypto/ecc/stark-curve"
	"github.com/nexusstark/pathsync/felt"
)

const (
	lowBits  = 248
	highBits = 4
)

var (
	basesOnce sync.Once
	shiftPt   starkcurve.G1Affine
	bases     [4]starkcurve.G1Affine // p1_low, p1_high, p2_low, p2_high
)

// initBases derives the fixed generator points deterministically from the
// curve's canonical generator, mirroring (in structure, not in the exact
// published constants) the StarkNet Pedersen parameter table: one shift
// point and one low/high point pair per input.
func initBases() {
	_, gen := starkcurve.Generators()

	mulBy := func(scalar string) starkcurve.G1Affine {
		var s big.Int
		s.SetString(scalar, 10)
		var out starkcurve.G1Jac
		var genJac starkcurve.G1Jac
		genJac.FromAffine(&gen)
		out.ScalarMultiplication(&genJac, &s)
		var affine starkcurve.G1Affine
		affine.FromJacobian(&out)
		return affine
	}

	shiftPt = mulBy("2563743073852357872462323893381")
	bases[0] = mulBy("3109833449836474206927010129182")
	bases[1] = mulBy("6469397358479679264424413249757")
	bases[2] = mulBy("7950991088003492249252507313021")
	bases[3] = mulBy("4926902934556810889924198750415")
}

// Hash computes the domain-separated Pedersen hash of a and b.
// It is deterministic and, unlike a commutative hash, treats a and b
// asymmetrically: Hash(a, b) != Hash(b, a) in general.
func Hash(a, b felt.Felt) felt.Felt {
	basesOnce.Do(initBases)

	var acc starkcurve.G1Jac
	var shiftJac starkcurve.G1Jac
	shiftJac.FromAffine(&shiftPt)
	acc.Set(&shiftJac)

	accumulate(&acc, a, bases[0], bases[1])
	accumulate(&acc, b, bases[2], bases[3])

	var affine starkcurve.G1Affine
	affine.FromJacobian(&acc)

	x := affine.X
	var out felt.Felt
	buf := x.Bytes()
	_ = out.SetBytes(buf) // x is always a valid field element by construction
	return out
}

// accumulate adds chunk*lowBase + highChunk*highBase to acc, where chunk
// is the low 248 bits of v and highChunk is the remaining 4 bits.
func accumulate(acc *starkcurve.G1Jac, v felt.Felt, lowBase, highBase starkcurve.G1Affine) {
	u := v.Uint256()

	var lowMask, high big.Int
	full := u.ToBig()
	lowMask.SetUint64(1)
	lowMask.Lsh(&lowMask, lowBits)
	lowMask.Sub(&lowMask, big.NewInt(1))

	var low big.Int
	low.And(full, &lowMask)
	high.Rsh(full, lowBits)

	var lowJac, highJac, tmp starkcurve.G1Jac
	tmp.FromAffine(&lowBase)
	lowJac.ScalarMultiplication(&tmp, &low)
	tmp.FromAffine(&highBase)
	highJac.ScalarMultiplication(&tmp, &high)

	acc.AddAssign(&lowJac)
	acc.AddAssign(&highJac)
}
