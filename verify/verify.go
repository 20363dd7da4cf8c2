package verify

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/qvmkernel/qvmcore/cap"
	"github.com/qvmkernel/qvmcore/cry"
	"github.com/qvmkernel/qvmcore/graph"
	"github.com/qvmkernel/qvmcore/ids"
)

const defaultCertCacheSize = 4096

// Verifier runs the seven-stage certification pipeline of spec §4.3
// against a Mediator's tokens, caching certificates by (graph hash,
// token id) so a resubmitted graph skips re-verification.
type Verifier struct {
	mediator *cap.Mediator

	mu    sync.Mutex
	cache *lru.Cache
}

// NewVerifier returns a Verifier mediating tokens through med and
// caching up to defaultCertCacheSize certificates.
func NewVerifier(med *cap.Mediator) *Verifier {
	c, err := lru.New(defaultCertCacheSize)
	if err != nil {
		panic(err) // only fails for a non-positive size, which defaultCertCacheSize never is
	}
	return &Verifier{mediator: med, cache: c}
}

type certKey struct {
	graphHash ids.Hash32
	tokenID   string
}

// Certify runs every verification stage against g under tok, in order,
// stopping at the first failure (reject-early). A passing graph yields
// a Certificate the engine can later present to prove admission without
// re-running the pipeline.
func (v *Verifier) Certify(g *graph.Graph, tok *cap.Token) (*Certificate, error) {
	encoded, err := graph.Encode(g)
	if err != nil {
		return nil, fail(StageStructural, KindMalformed, "", "", "graph does not re-encode: %v", err)
	}
	graphHash := ids.BytesToHash32(hashBytes(encoded))
	key := certKey{graphHash: graphHash, tokenID: tok.ID}

	v.mu.Lock()
	if cached, ok := v.cache.Get(key); ok {
		v.mu.Unlock()
		if err := v.mediator.Verify(tok); err != nil {
			return nil, err
		}
		cert := cached.(*Certificate)
		return cert, nil
	}
	v.mu.Unlock()

	if err := v.mediator.Verify(tok); err != nil {
		return nil, err
	}

	cert, err := certify(g, tok, graphHash)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.cache.Add(key, cert)
	v.mu.Unlock()

	return cert, nil
}

// certify runs the stateless pipeline stages (1-7) against g, with no
// caching or mediator I/O of its own.
func certify(g *graph.Graph, tok *cap.Token, graphHash ids.Hash32) (*Certificate, error) {
	if g.Len() == 0 {
		return nil, fail(StageStructural, KindMalformed, "", "", "graph has no nodes")
	}
	seen := make(map[ids.NodeID]bool, g.Len())
	for _, n := range g.Nodes() {
		if n.ID == "" {
			return nil, fail(StageStructural, KindMalformed, "", "", "node has empty id")
		}
		if seen[n.ID] {
			return nil, fail(StageStructural, KindMalformed, n.ID, "", "duplicate node id %q", n.ID)
		}
		seen[n.ID] = true
		if _, known := cap.RequiredCaps(n.Op); !known {
			return nil, fail(StageStructural, KindMalformed, n.ID, "", "unknown opcode %q", n.Op)
		}
	}

	order, err := topologicalOrder(g)
	if err != nil {
		return nil, err
	}

	anc := buildAncestry(g)

	if err := checkLinearity(g, order, anc); err != nil {
		return nil, err
	}
	if err := checkGuardScope(g, anc); err != nil {
		return nil, err
	}
	if err := checkCapabilityCoverage(g, tok.Caps); err != nil {
		return nil, err
	}
	if err := checkFirewallIntent(g, order, anc); err != nil {
		return nil, err
	}
	segments, err := computeRevSegments(g, order, anc)
	if err != nil {
		return nil, err
	}

	return &Certificate{
		GraphHash:   graphHash,
		TokenID:     tok.ID,
		RevSegments: segments,
	}, nil
}

func hashBytes(data []byte) []byte {
	sum := cry.Sum(data)
	return sum[:]
}
