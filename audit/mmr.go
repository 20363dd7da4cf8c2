package audit

import (
	"github.com/qvmkernel/qvmcore/cry"
	"github.com/qvmkernel/qvmcore/ids"
)

// peak is one root of a Merkle Mountain Range: a perfectly-balanced
// subtree of 2^height leaves.
type peak struct {
	hash   [32]byte
	height int
}

// mmr is an append-only Merkle Mountain Range: appending a leaf is
// O(log n) instead of the O(n) a rebuilt-each-time balanced tree would
// cost, at the price of a bagged (not single-root) summary. Bagging the
// current peaks into one hash is what RootAt/Root hand back.
type mmr struct {
	peaks []peak
}

// push adds a leaf hash, merging equal-height peaks right to left the
// way a binary counter carries, until no two adjacent peaks share a
// height.
func (m *mmr) push(leaf [32]byte) {
	m.peaks = append(m.peaks, peak{hash: leaf, height: 0})
	for len(m.peaks) >= 2 {
		last := m.peaks[len(m.peaks)-1]
		prev := m.peaks[len(m.peaks)-2]
		if last.height != prev.height {
			break
		}
		merged := peak{
			hash:   cry.MerkleInnerHash(prev.hash, last.hash),
			height: last.height + 1,
		}
		m.peaks = m.peaks[:len(m.peaks)-2]
		m.peaks = append(m.peaks, merged)
	}
}

// bag folds the current peaks into a single summary hash, right to
// left, so the emptiest/youngest peak's identity dominates least.
func (m *mmr) bag() ids.Hash32 {
	if len(m.peaks) == 0 {
		return ids.Hash32{}
	}
	acc := m.peaks[len(m.peaks)-1].hash
	for i := len(m.peaks) - 2; i >= 0; i-- {
		acc = cry.MerkleInnerHash(m.peaks[i].hash, acc)
	}
	return ids.Hash32(acc)
}
