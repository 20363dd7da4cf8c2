// Package firewall implements the entanglement firewall (component
// C5): it tracks which tenant owns which virtual qubit and which
// cross-tenant channels are currently open, and is the single
// authority the engine consults before letting an operation create or
// use entanglement that crosses a tenant boundary.
package firewall

import (
	stderrors "errors"
	"sync"

	"github.com/katalvlaran/lvlath/core"

	"github.com/qvmkernel/qvmcore/ids"
)

var (
	// ErrUnknownVQ is returned when an op references a VQ the firewall
	// has no owner record for.
	ErrUnknownVQ = stderrors.New("firewall: unknown virtual qubit")
	// ErrCrossTenantDenied is returned when two VQs belong to different
	// tenants and no live channel bridges them.
	ErrCrossTenantDenied = stderrors.New("firewall: cross-tenant entanglement requires an open channel")
	// ErrChannelExists is returned when OpenChannel is called twice for
	// the same channel id without an intervening CloseChannel.
	ErrChannelExists = stderrors.New("firewall: channel already open")
	// ErrChannelNotOpen is returned when CloseChannel or MayEntangle
	// references a channel id with no open record.
	ErrChannelNotOpen = stderrors.New("firewall: channel not open")
)

type channel struct {
	a, b ids.TenantID
}

// bridges reports whether the channel connects tenants x and y, order
// independent.
func (c channel) bridges(x, y ids.TenantID) bool {
	return (c.a == x && c.b == y) || (c.a == y && c.b == x)
}

// Firewall is the live owner/entanglement state for one kernel
// instance. All methods are safe for concurrent use.
type Firewall struct {
	mu       sync.Mutex
	owner    map[ids.VQID]ids.TenantID
	channels map[ids.CHID]channel
	rel      *core.Graph // undirected graph of live entanglement edges, VQ id -> VQ id
	edgeID   map[edgeKey]string
}

type edgeKey struct{ a, b ids.VQID }

func normalize(a, b ids.VQID) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// New returns an empty Firewall.
func New() *Firewall {
	return &Firewall{
		owner:    make(map[ids.VQID]ids.TenantID),
		channels: make(map[ids.CHID]channel),
		rel:      core.NewGraph(core.WithDirected(false)),
		edgeID:   make(map[edgeKey]string),
	}
}

// RegisterOwner records that vq belongs to tenant, called when a VQ is
// introduced (ALLOC_LQ).
func (f *Firewall) RegisterOwner(vq ids.VQID, tenant ids.TenantID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owner[vq] = tenant
	if !f.rel.HasVertex(string(vq)) {
		_ = f.rel.AddVertex(string(vq))
	}
}

// Forget removes vq's ownership and entanglement records, called when
// a VQ is terminally consumed (FREE_LQ/MEASURE_*).
func (f *Firewall) Forget(vq ids.VQID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.owner, vq)
	_ = f.rel.RemoveVertex(string(vq)) // also drops incident edges
	for k := range f.edgeID {
		if k.a == vq || k.b == vq {
			delete(f.edgeID, k)
		}
	}
}

// OwnerOf returns the tenant that owns vq.
func (f *Firewall) OwnerOf(vq ids.VQID) (ids.TenantID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.owner[vq]
	return t, ok
}

// OpenChannel records a live channel bridging tenants a and b.
func (f *Firewall) OpenChannel(ch ids.CHID, a, b ids.TenantID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[ch]; ok {
		return ErrChannelExists
	}
	f.channels[ch] = channel{a: a, b: b}
	return nil
}

// CloseChannel removes a channel's live record.
func (f *Firewall) CloseChannel(ch ids.CHID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[ch]; !ok {
		return ErrChannelNotOpen
	}
	delete(f.channels, ch)
	return nil
}

// MayEntangle reports whether an operation may touch both vqA and vqB
// together: same-tenant pairs are always allowed; cross-tenant pairs
// require ch to name a currently open channel bridging their owners.
func (f *Firewall) MayEntangle(vqA, vqB ids.VQID, ch ids.CHID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	ta, ok := f.owner[vqA]
	if !ok {
		return ErrUnknownVQ
	}
	tb, ok := f.owner[vqB]
	if !ok {
		return ErrUnknownVQ
	}
	if ta == tb {
		return nil
	}
	c, ok := f.channels[ch]
	if !ok {
		return ErrChannelNotOpen
	}
	if !c.bridges(ta, tb) {
		return ErrCrossTenantDenied
	}
	return nil
}

// Entangle records that vqA and vqB became entangled by some executed
// operation, for telemetry and later connectivity queries. Callers
// must have already confirmed the operation via MayEntangle.
func (f *Firewall) Entangle(vqA, vqB ids.VQID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := normalize(vqA, vqB)
	if _, ok := f.edgeID[key]; ok {
		return nil
	}
	if !f.rel.HasVertex(string(vqA)) || !f.rel.HasVertex(string(vqB)) {
		return ErrUnknownVQ
	}
	eid, err := f.rel.AddEdge(string(vqA), string(vqB), 0)
	if err != nil {
		return err
	}
	f.edgeID[key] = eid
	return nil
}

// IsEntangled reports whether vqA and vqB have a recorded direct
// entanglement edge.
func (f *Firewall) IsEntangled(vqA, vqB ids.VQID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rel.HasEdge(string(vqA), string(vqB))
}
