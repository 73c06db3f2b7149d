package trie

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/holiman/uint256"
	"github.com/nexusstark/pathsync/felt"
)

// KeyLen is the length of the fixed-length, MSB-first bit decomposition
// of a 251-bit key. Index 0 is the most significant bit consumed first when
// descending from the trie root; index KeyLen-1 is the bit a Leaf's
// immediate parent tests.
const KeyLen = 251

// uint256Bit returns bit i (0 = least significant) of u, matching the
// semantics of math/big.Int.Bit.
func uint256Bit(u *uint256.Int, i int) uint {
	var t uint256.Int
	t.Rsh(u, uint(i))
	return uint(t.Uint64() & 1)
}

// uint256SetBit sets bit i (0 = least significant) of x to b, storing the
// result in z, matching the semantics of math/big.Int.SetBit.
func uint256SetBit(z, x *uint256.Int, i int, b uint) *uint256.Int {
	var mask uint256.Int
	mask.SetOne()
	mask.Lsh(&mask, uint(i))
	if b != 0 {
		z.Or(x, &mask)
	} else {
		var notMask uint256.Int
		notMask.Not(&mask)
		z.And(x, &notMask)
	}
	return z
}

// keyBits decomposes key into its KeyLen-bit MSB-first path.
func keyBits(key felt.Felt) *bitset.BitSet {
	u := key.Uint256()
	bs := bitset.New(KeyLen)
	for i := 0; i < KeyLen; i++ {
		if uint256Bit(u, KeyLen-1-i) == 1 {
			bs.Set(uint(i))
		}
	}
	return bs
}

// subPath extracts the length bits of full starting at bit offset start
// (both counted MSB-first from the start of full), as a standalone
// bitset of that length.
func subPath(full *bitset.BitSet, start, length uint) *bitset.BitSet {
	out := bitset.New(length)
	for i := uint(0); i < length; i++ {
		if full.Test(start + i) {
			out.Set(i)
		}
	}
	return out
}

// commonPrefixLen returns the number of leading bits a and b share.
func commonPrefixLen(a, b *bitset.BitSet) uint {
	n := a.Len()
	if b.Len() < n {
		n = b.Len()
	}
	var i uint
	for i = 0; i < n; i++ {
		if a.Test(i) != b.Test(i) {
			break
		}
	}
	return i
}

// pathToFelt encodes p's bits (MSB-first, p.Len() of them) as the Felt
// whose binary representation is exactly those bits, matching the
// `path_as_felt` used in the Edge node hash formula.
func pathToFelt(p *bitset.BitSet) felt.Felt {
	var u uint256.Int
	n := p.Len()
	for i := uint(0); i < n; i++ {
		if p.Test(i) {
			uint256SetBit(&u, &u, int(n-1-i), 1)
		}
	}
	b := u.Bytes32()
	return felt.MustFromBytes(b)
}

// feltToPath decodes a path previously encoded by pathToFelt, given its
// known bit length.
func feltToPath(f felt.Felt, length uint8) *bitset.BitSet {
	u := f.Uint256()
	out := bitset.New(uint(length))
	for i := uint(0); i < uint(length); i++ {
		if uint256Bit(u, int(uint(length)-1-i)) == 1 {
			out.Set(i)
		}
	}
	return out
}

// concatBit returns a new bitset of length p.Len()+1 with bit set
// appended as the new final bit.
func concatBit(p *bitset.BitSet, bit bool) *bitset.BitSet {
	out := bitset.New(p.Len() + 1)
	for i := uint(0); i < p.Len(); i++ {
		if p.Test(i) {
			out.Set(i)
		}
	}
	if bit {
		out.Set(p.Len())
	}
	return out
}

// dropPrefix returns the bits of p after its first n bits.
func dropPrefix(p *bitset.BitSet, n uint) *bitset.BitSet {
	return subPath(p, n, p.Len()-n)
}

// concatPaths appends b's bits after a's, returning a new bitset of
// length a.Len()+b.Len().
func concatPaths(a, b *bitset.BitSet) *bitset.BitSet {
	out := bitset.New(a.Len() + b.Len())
	for i := uint(0); i < a.Len(); i++ {
		if a.Test(i) {
			out.Set(i)
		}
	}
	for i := uint(0); i < b.Len(); i++ {
		if b.Test(i) {
			out.Set(a.Len() + i)
		}
	}
	return out
}

// bitsetEqual reports whether a and b have the same length and bits.
func bitsetEqual(a, b *bitset.BitSet) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := uint(0); i < a.Len(); i++ {
		if a.Test(i) != b.Test(i) {
			return false
		}
	}
	return true
}
