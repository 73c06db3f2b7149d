package pedersen_test

import (
	"testing"

	"github.com/nexusstark/pathsync/felt"
	"github.com/nexusstark/pathsync/pedersen"
	"github.com/stretchr/testify/assert"
)

func TestHashIsDeterministic(t *testing.T) {
	a := felt.FromUint64(1)
	b := felt.FromUint64(2)

	h1 := pedersen.Hash(a, b)
	h2 := pedersen.Hash(a, b)
	assert.True(t, h1.Equal(h2))
}

func TestHashIsNotCommutative(t *testing.T) {
	a := felt.FromUint64(1)
	b := felt.FromUint64(2)

	assert.False(t, pedersen.Hash(a, b).Equal(pedersen.Hash(b, a)))
}

func TestHashDistinguishesInputs(t *testing.T) {
	a := felt.FromUint64(3)
	b := felt.FromUint64(4)
	c := felt.FromUint64(5)

	assert.False(t, pedersen.Hash(a, b).Equal(pedersen.Hash(a, c)))
}

func TestHashOfZeros(t *testing.T) {
	z := felt.Zero()
	h := pedersen.Hash(z, z)
	assert.False(t, h.IsZero(), "hash of zero preimage is not zero, it's the shift point's x-coordinate")
}
