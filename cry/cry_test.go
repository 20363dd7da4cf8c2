package cry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumDeterministic(t *testing.T) {
	a := Sum([]byte("hello"), []byte("world"))
	b := Sum([]byte("hello"), []byte("world"))
	assert.Equal(t, a, b)

	c := Sum([]byte("hello"), []byte("worlD"))
	assert.NotEqual(t, a, c)
}

func TestSHA256Deterministic(t *testing.T) {
	a := SHA256([]byte("x"), []byte("y"))
	b := SHA256([]byte("xy"))
	assert.Equal(t, a, b, "SHA256 over concatenated args must equal SHA256 of the concatenation")
}

func TestMACRejectsBadKeyLength(t *testing.T) {
	assert.Panics(t, func() {
		NewMAC([]byte("too-short"))
	})
}

func TestMACDeterministicAndKeyed(t *testing.T) {
	key1 := make([]byte, MACKeyLength)
	key2 := make([]byte, MACKeyLength)
	key2[0] = 1

	m1 := MAC(key1, []byte("payload"))
	m2 := MAC(key1, []byte("payload"))
	m3 := MAC(key2, []byte("payload"))

	require.True(t, MACEqual(m1, m2))
	assert.False(t, MACEqual(m1, m3))
}

func TestMerkleHashesDiffer(t *testing.T) {
	leaf := MerkleLeafHash([]byte("record"))
	left := MerkleLeafHash([]byte("a"))
	right := MerkleLeafHash([]byte("b"))
	inner := MerkleInnerHash(left, right)
	assert.NotEqual(t, leaf, inner)

	// domain separation: same bytes, different hash depending on leaf/inner framing
	assert.NotEqual(t, MerkleLeafHash(append(append([]byte{}, left[:]...), right[:]...)), inner)
}
