package qubit

import (
	"crypto/sha256"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Stream is a deterministic draw source seeded once per job (spec.md
// §4.6): the same (jobSeed, draw order) always reproduces the same
// outcomes, which is what lets a job's execution be replayed for audit
// without re-running the physical (simulated) randomness.
//
// Seed derivation uses a real KDF (hkdf) since that's the part worth a
// dependency; the per-draw bit extraction is a one-line counter-keyed
// SHA-256, not worth one of its own.
type Stream struct {
	key     [32]byte
	counter uint64
}

// NewStream derives a Stream's key from a job seed and a domain string
// (e.g. a VQ id) via HKDF-SHA256, so two different qubits in the same
// job draw from independent, non-correlated streams while both remain
// reproducible from the one job seed.
func NewStream(jobSeed []byte, domain string) *Stream {
	r := hkdf.New(sha256.New, jobSeed, nil, []byte(domain))
	var key [32]byte
	if _, err := io.ReadFull(r, key[:]); err != nil {
		// hkdf.New's reader only errs past its expansion limit, never
		// reachable for a single 32-byte read; panic would be
		// unreachable in practice, so fall back to SHA-256 of the job
		// seed instead of propagating an error every caller would have
		// to check.
		key = sha256.Sum256(jobSeed)
	}
	return &Stream{key: key}
}

// next returns the next 32-byte block in the stream, advancing the
// counter.
func (s *Stream) next() [32]byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], s.counter)
	s.counter++
	h := sha256.New()
	h.Write(s.key[:])
	h.Write(buf[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Float64 returns the next draw as a value in [0, 1).
func (s *Stream) Float64() float64 {
	b := s.next()
	v := binary.BigEndian.Uint64(b[:8])
	return float64(v>>11) / (1 << 53)
}

// Bit returns the next draw as a single uniformly random bit.
func (s *Stream) Bit() int {
	b := s.next()
	return int(b[0] & 1)
}
