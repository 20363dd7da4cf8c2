// Package ids defines the handle and identity primitives shared by every
// component of the kernel: tenant identities, session/job ids, and
// the free-form string handles that name virtual qubits, channels and
// events on the wire.
package ids

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TenantIDLength is the byte length of a TenantID.
const TenantIDLength = 20

// TenantID identifies the principal that owns resources and capabilities.
type TenantID [TenantIDLength]byte

// String renders the tenant id as a 0x-prefixed hex string.
func (t TenantID) String() string {
	return "0x" + hex.EncodeToString(t[:])
}

// IsZero reports whether t is the zero tenant (used as a sentinel for
// "no tenant"/un-set fields).
func (t TenantID) IsZero() bool {
	return t == TenantID{}
}

// Bytes returns a copy of the underlying bytes.
func (t TenantID) Bytes() []byte {
	b := make([]byte, TenantIDLength)
	copy(b, t[:])
	return b
}

// ParseTenantID parses a hex string (with or without 0x prefix) into a
// TenantID.
func ParseTenantID(s string) (TenantID, error) {
	var t TenantID
	b, err := parseHexFixed(s, TenantIDLength)
	if err != nil {
		return t, err
	}
	copy(t[:], b)
	return t, nil
}

// TenantFromBytes truncates/pads b into a TenantID the way
// go-ethereum's common.BytesToAddress does for Address: right-aligned,
// keeping the least-significant TenantIDLength bytes.
func TenantFromBytes(b []byte) TenantID {
	var t TenantID
	padded := common.LeftPadBytes(b, TenantIDLength)
	copy(t[:], padded[len(padded)-TenantIDLength:])
	return t
}

// Hash32Length is the byte length of a Hash32 (graph fingerprints, Merkle
// roots, session/job ids).
const Hash32Length = 32

// Hash32 is a generic 32-byte identifier used for graph fingerprints,
// Merkle roots and session/job identifiers.
type Hash32 [Hash32Length]byte

// String renders the hash as a 0x-prefixed hex string.
func (h Hash32) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero hash.
func (h Hash32) IsZero() bool {
	return h == Hash32{}
}

// Bytes returns a copy of the underlying bytes.
func (h Hash32) Bytes() []byte {
	b := make([]byte, Hash32Length)
	copy(b, h[:])
	return b
}

// ParseHash32 parses a hex string (with or without 0x prefix) into a
// Hash32.
func ParseHash32(s string) (Hash32, error) {
	var h Hash32
	b, err := parseHexFixed(s, Hash32Length)
	if err != nil {
		return h, err
	}
	copy(h[:], b)
	return h, nil
}

// BytesToHash32 copies (truncating/left-padding as needed) b into a
// Hash32.
func BytesToHash32(b []byte) Hash32 {
	var h Hash32
	if len(b) >= Hash32Length {
		copy(h[:], b[len(b)-Hash32Length:])
	} else {
		copy(h[Hash32Length-len(b):], b)
	}
	return h
}

func parseHexFixed(s string, length int) ([]byte, error) {
	switch {
	case len(s) == length*2:
	case len(s) == length*2+2:
		if strings.ToLower(s[:2]) != "0x" {
			return nil, errors.New("ids: invalid hex prefix")
		}
		s = s[2:]
	default:
		return nil, errors.New("ids: invalid hex length")
	}
	b := make([]byte, length)
	if _, err := hex.Decode(b, []byte(s)); err != nil {
		return nil, err
	}
	return b, nil
}

// VQID is a producer-chosen, graph-local virtual qubit handle identifier.
// Unlike TenantID/Hash32 it is a free-form string: spec.md §3.1 requires
// handle ids to be whatever the introducing node (ALLOC_LQ, OPEN_CHAN,
// MEASURE_*) or the caller's capability token names, not a derived hash.
type VQID string

// CHID is a producer-chosen entanglement channel handle identifier.
type CHID string

// EVID is a producer-chosen classical event (measurement outcome) handle
// identifier.
type EVID string

// NodeID is a node identifier, unique within a single graph's node list.
type NodeID string
