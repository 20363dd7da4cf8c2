// Package engine implements the execution engine (component C7): the
// LOAD -> EXECUTE -> UNLOAD state machine that runs a certified graph
// node by node, dispatching each opcode to the resource manager,
// entanglement firewall, and logical qubit simulator, under one
// session's resource quota and cooperative cancellation.
package engine

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/sync/semaphore"

	"github.com/qvmkernel/qvmcore/ids"
)

// Quota bounds one session's concurrent resource use (spec.md §5).
type Quota struct {
	MaxLiveVQs        uint64
	MaxLiveChannels   uint64
	MaxConcurrentJobs int64
}

// Session is the bounded lifetime window spec.md §3.5 describes:
// handles and capabilities issued under it are only meaningful while
// it's open. Session has no terminate operation; qubits and channels
// are released per job, by that job's UNLOAD, not by ending the
// session. The per-job PRNG seed is derived deterministically from the
// session's master seed and an incrementing job counter, so replaying
// job N always reproduces the same seed without the session needing to
// persist one seed per job (spec.md §4.6).
type Session struct {
	ID         ids.Hash32
	Tenant     ids.TenantID
	Quota      Quota
	masterSeed []byte

	jobSem *semaphore.Weighted

	mu         sync.Mutex
	jobCounter uint64
}

// NewSession returns a Session scoped to tenant, bounded by quota, and
// seeded from masterSeed (the caller should supply cryptographically
// random bytes; a fixed seed is only useful for reproducing a prior
// run's job seeds in a test).
func NewSession(id ids.Hash32, tenant ids.TenantID, quota Quota, masterSeed []byte) *Session {
	return &Session{
		ID:         id,
		Tenant:     tenant,
		Quota:      quota,
		masterSeed: append([]byte(nil), masterSeed...),
		jobSem:     semaphore.NewWeighted(quota.MaxConcurrentJobs),
	}
}

// nextJobSeed derives the next job's deterministic seed via HKDF over
// the session's master seed, domain-separated by an incrementing
// counter so consecutive jobs never share a stream.
func (s *Session) nextJobSeed() []byte {
	s.mu.Lock()
	counter := s.jobCounter
	s.jobCounter++
	s.mu.Unlock()

	var info [8]byte
	binary.BigEndian.PutUint64(info[:], counter)

	r := hkdf.New(sha256.New, s.masterSeed, nil, info[:])
	seed := make([]byte, 32)
	if _, err := r.Read(seed); err != nil {
		seed = s.masterSeed // hkdf read past its expansion limit is unreachable at 32 bytes
	}
	return seed
}
