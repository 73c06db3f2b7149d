// Package felt implements the 252-bit STARK-friendly prime field element
// used throughout the StarkNet state machinery: contract addresses,
// storage slots and values, code hashes and trie roots are all Felts.
package felt

import (
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Len is the fixed big-endian byte width of a Felt's wire encoding.
const Len = 32

// Felt is an element of the StarkNet prime field. The zero value is the
// field's zero element and denotes both "absent" and "the empty trie"
// depending on context, per the trie's design (see package trie).
type Felt struct {
	inner fp.Element
}

// ErrOutOfRange is returned by SetBytes when the encoded integer is not
// smaller than the field modulus.
type ErrOutOfRange struct {
	Bytes [Len]byte
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("felt: value %x is out of range of the field modulus", e.Bytes)
}

// Zero is the additive identity.
func Zero() Felt { return Felt{} }

// IsZero reports whether f is the zero element.
func (f Felt) IsZero() bool {
	return f.inner.IsZero()
}

// Equal reports whether f and g represent the same field element.
func (f Felt) Equal(g Felt) bool {
	return f.inner.Equal(&g.inner)
}

// SetBytes decodes a fixed-length 32-byte big-endian integer into f.
// It fails with ErrOutOfRange when the encoded value is not strictly
// smaller than the field modulus; on failure f is left unmodified.
func (f *Felt) SetBytes(b [Len]byte) error {
	var candidate fp.Element
	// fp.Element.SetBytesCanonical rejects encodings at or above the
	// modulus, so out-of-range values never silently wrap.
	if err := candidate.SetBytesCanonical(b[:]); err != nil {
		return &ErrOutOfRange{Bytes: b}
	}
	f.inner = candidate
	return nil
}

// MustFromBytes is a convenience for tests and constant tables; it panics
// on an out-of-range encoding.
func MustFromBytes(b [Len]byte) Felt {
	var f Felt
	if err := f.SetBytes(b); err != nil {
		panic(err)
	}
	return f
}

// FromUint64 constructs the Felt representing the given small integer.
func FromUint64(v uint64) Felt {
	var f Felt
	f.inner.SetUint64(v)
	return f
}

// Bytes encodes f as fixed-length 32-byte big-endian.
func (f Felt) Bytes() [Len]byte {
	return f.inner.Bytes()
}

// Add returns f+g reduced modulo the field modulus.
func (f Felt) Add(g Felt) Felt {
	var out Felt
	out.inner.Add(&f.inner, &g.inner)
	return out
}

// String renders f as a 0x-prefixed hex string, trimmed of leading zeros.
func (f Felt) String() string {
	b := f.Bytes()
	return "0x" + new(big.Int).SetBytes(b[:]).Text(16)
}

// EncodeRLP implements rlp.Encoder, writing f as its 32-byte big-endian
// encoding so Felt can appear as a field in RLP-encoded table rows
// (package store) without exposing its unexported internal
// representation to the reflection-based default encoder.
func (f Felt) EncodeRLP(w io.Writer) error {
	b := f.Bytes()
	return rlp.Encode(w, b[:])
}

// DecodeRLP implements rlp.Decoder.
func (f *Felt) DecodeRLP(s *rlp.Stream) error {
	var b []byte
	if err := s.Decode(&b); err != nil {
		return err
	}
	if len(b) > Len {
		return fmt.Errorf("felt: rlp value of %d bytes exceeds the %d-byte encoding", len(b), Len)
	}
	var fixed [Len]byte
	copy(fixed[Len-len(b):], b)
	return f.SetBytes(fixed)
}

// Uint256 returns f's value as a uint256, useful for bit-level trie
// descent (see package trie) where bit-level helpers are more convenient
// than repeated byte-slicing.
func (f Felt) Uint256() *uint256.Int {
	b := f.Bytes()
	var u uint256.Int
	u.SetBytes(b[:])
	return &u
}
