// Package resource implements the physical qubit pool and per-tenant
// ledger (component C4): a bounded supply of physical qubits is drawn
// down as logical qubits are allocated, each at a capacity cost fixed
// by its error-correction profile.
package resource

import (
	stderrors "errors"
	"sync"

	"github.com/qvmkernel/qvmcore/ids"
)

var (
	// ErrInsufficientCapacity is returned when a request would exceed
	// the pool's remaining physical qubit budget.
	ErrInsufficientCapacity = stderrors.New("resource: insufficient physical qubit capacity")
	// ErrOverFree is returned when a tenant's ledger would go negative.
	ErrOverFree = stderrors.New("resource: free exceeds tenant's allocated capacity")
)

// ledger is one tenant's outstanding allocation, mirroring how acc.Account
// tracks a running balance rather than individual allocations.
type ledger struct {
	logicalQubits  uint64
	physicalQubits uint64
}

// Pool is the kernel-wide physical qubit supply. Total is fixed at
// construction; Alloc/Free move capacity between "available" and a
// per-tenant ledger under a single mutex, since allocation decisions
// must be serialized across tenants sharing one physical budget.
type Pool struct {
	mu        sync.Mutex
	total     uint64
	allocated uint64
	byTenant  map[ids.TenantID]*ledger
}

// NewPool returns a Pool with the given total physical qubit capacity.
func NewPool(total uint64) *Pool {
	return &Pool{
		total:    total,
		byTenant: make(map[ids.TenantID]*ledger),
	}
}

// Alloc reserves capacity for n logical qubits at cost perLogical
// physical qubits each, charged against tenant's ledger. It fails
// atomically: either every requested logical qubit is granted, or none
// are and the pool is left unchanged.
func (p *Pool) Alloc(tenant ids.TenantID, n uint64, perLogical uint64) error {
	if n == 0 {
		return nil
	}
	cost := n * perLogical

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total-p.allocated < cost {
		return ErrInsufficientCapacity
	}
	p.allocated += cost

	l, ok := p.byTenant[tenant]
	if !ok {
		l = &ledger{}
		p.byTenant[tenant] = l
	}
	l.logicalQubits += n
	l.physicalQubits += cost
	return nil
}

// Free releases n logical qubits (at cost perLogical physical qubits
// each) previously allocated to tenant.
func (p *Pool) Free(tenant ids.TenantID, n uint64, perLogical uint64) error {
	if n == 0 {
		return nil
	}
	cost := n * perLogical

	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.byTenant[tenant]
	if !ok || l.logicalQubits < n || l.physicalQubits < cost {
		return ErrOverFree
	}
	l.logicalQubits -= n
	l.physicalQubits -= cost
	if l.logicalQubits == 0 {
		delete(p.byTenant, tenant)
	}
	p.allocated -= cost
	return nil
}

// Snapshot is a point-in-time telemetry view of the pool.
type Snapshot struct {
	Total     uint64
	Allocated uint64
	Available uint64
	ByTenant  map[ids.TenantID]TenantUsage
}

// TenantUsage is one tenant's slice of a Snapshot.
type TenantUsage struct {
	LogicalQubits  uint64
	PhysicalQubits uint64
}

// Snapshot returns the pool's current state. The returned map is a
// copy; mutating it does not affect the pool.
func (p *Pool) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Snapshot{
		Total:     p.total,
		Allocated: p.allocated,
		Available: p.total - p.allocated,
		ByTenant:  make(map[ids.TenantID]TenantUsage, len(p.byTenant)),
	}
	for t, l := range p.byTenant {
		s.ByTenant[t] = TenantUsage{LogicalQubits: l.logicalQubits, PhysicalQubits: l.physicalQubits}
	}
	return s
}
