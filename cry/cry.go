// Package cry holds the kernel's cryptographic primitives: content
// hashing (graph/node fingerprints), HMAC-based capability token signing,
// and the Merkle leaf/inner hashing used by the audit log.
//
// The token MAC and Merkle constructions are pinned bit-for-bit by
// spec.md §4.2 and §6.4 (HMAC over SHA-256, H(0x00‖record) / H(0x01‖l‖r)
// respectively), so this package reaches for stdlib crypto/hmac and
// crypto/sha256 for those two constructions specifically; general
// content hashing (graph fingerprints, node ids) uses go-ethereum's
// Keccak256, matching the teacher's own crypto package.
package cry

import (
	"crypto/hmac"
	"crypto/sha256"
	"hash"

	"github.com/ethereum/go-ethereum/crypto"
)

// Sum computes the Keccak256 digest of the concatenation of data, the way
// the teacher's cry.VSha3/HashSum helpers did.
func Sum(data ...[]byte) [32]byte {
	return crypto.Keccak256Hash(data...)
}

// SHA256 computes the SHA-256 digest of the concatenation of data.
func SHA256(data ...[]byte) [32]byte {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// MACKeyLength is the required length, in bytes, of a token signing key
// (spec.md §4.2: "a length-32-byte secret key").
const MACKeyLength = 32

// NewMAC returns an HMAC-SHA256 instance keyed by key. Panics if key is
// not MACKeyLength bytes — callers are expected to validate key length
// once, at mediator construction time, not per-call.
func NewMAC(key []byte) hash.Hash {
	if len(key) != MACKeyLength {
		panic("cry: MAC key must be 32 bytes")
	}
	return hmac.New(sha256.New, key)
}

// MAC computes the HMAC-SHA256 of the concatenation of data under key.
func MAC(key []byte, data ...[]byte) []byte {
	m := NewMAC(key)
	for _, d := range data {
		m.Write(d)
	}
	return m.Sum(nil)
}

// MACEqual reports whether two MACs are equal, in constant time.
func MACEqual(a, b []byte) bool {
	return hmac.Equal(a, b)
}

// MerkleLeafHash computes H(0x00 || record) per spec.md §6.4.
func MerkleLeafHash(record []byte) [32]byte {
	return SHA256([]byte{0x00}, record)
}

// MerkleInnerHash computes H(0x01 || left || right) per spec.md §6.4.
func MerkleInnerHash(left, right [32]byte) [32]byte {
	return SHA256([]byte{0x01}, left[:], right[:])
}
