package verify

import "github.com/qvmkernel/qvmcore/ids"

// RevSegment is a maximal run of reversible (unitary) operations on a
// single VQ, bounded by its introduction/last irreversible op and the
// next irreversible op (I7).
type RevSegment struct {
	VQ    string
	Start ids.NodeID
	End   ids.NodeID
}

// Certificate is the opaque proof of admission the engine requires
// before it will execute a graph: a fingerprint of the exact graph
// bytes certified, the token that was charged for it, and the
// reversible-segment annotations stage 7 computed.
type Certificate struct {
	GraphHash   ids.Hash32
	TokenID     string
	RevSegments []RevSegment
}
