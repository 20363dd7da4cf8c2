package audit

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/qvmkernel/qvmcore/co"
	"github.com/qvmkernel/qvmcore/cry"
	"github.com/qvmkernel/qvmcore/ids"
)

const defaultTenantQueryCacheSize = 256

// Log is the in-process audit log: an append-only leaf list with a
// Merkle Mountain Range accumulator, a by-tenant index, and optional
// durable sidecar/secondary-index backends. All methods are safe for
// concurrent use; Append is the only writer and holds the lock while it
// stamps and stores the leaf, matching spec.md §5's "per-job entries
// appended in per-job order" guarantee trivially (one global order).
// The sidecar write, secondary-index insert and waiter broadcast run
// after the lock is released.
type Log struct {
	mu            sync.Mutex
	leaves        []Record
	roots         []ids.Hash32
	tree          mmr
	indexByTenant map[ids.TenantID][]uint64
	queryCache    *lru.Cache
	sig           co.Signal

	sidecar *Sidecar
	index   *SecondaryIndex
}

// Option configures a Log at construction.
type Option func(*Log)

// WithSidecar attaches an already opened durable append-only leaf sidecar.
func WithSidecar(s *Sidecar) Option {
	return func(l *Log) { l.sidecar = s }
}

// WithSecondaryIndex attaches a queryable secondary index.
func WithSecondaryIndex(idx *SecondaryIndex) Option {
	return func(l *Log) { l.index = idx }
}

// NewLog returns an empty Log.
func NewLog(opts ...Option) *Log {
	cache, err := lru.New(defaultTenantQueryCacheSize)
	if err != nil {
		panic(err) // only fails for a non-positive size
	}
	l := &Log{
		indexByTenant: make(map[ids.TenantID][]uint64),
		queryCache:    cache,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append adds rec as the next leaf, stamping it with its index and the
// resulting root, and returns the stamped copy.
func (l *Log) Append(rec Record) Record {
	leafHash := cry.MerkleLeafHash(canonicalBytes(rec))

	l.mu.Lock()
	rec.Index = uint64(len(l.leaves))
	l.tree.push(leafHash)
	rec.Root = l.tree.bag()

	l.leaves = append(l.leaves, rec)
	l.roots = append(l.roots, rec.Root)
	l.indexByTenant[rec.Tenant] = append(l.indexByTenant[rec.Tenant], rec.Index)
	l.queryCache.Remove(rec.Tenant)
	l.mu.Unlock()

	if l.sidecar != nil {
		l.sidecar.Write(rec) // best-effort; sidecar logs its own write errors
	}
	if l.index != nil {
		l.index.Insert(rec)
	}
	l.sig.Broadcast()

	return rec
}

// Root returns the current accumulated root, or the zero hash for an
// empty log.
func (l *Log) Root() ids.Hash32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.roots) == 0 {
		return ids.Hash32{}
	}
	return l.roots[len(l.roots)-1]
}

// RootAt returns the root as of (and including) the leaf at index.
func (l *Log) RootAt(index uint64) (ids.Hash32, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index >= uint64(len(l.roots)) {
		return ids.Hash32{}, false
	}
	return l.roots[index], true
}

// Len returns the number of leaves appended so far.
func (l *Log) Len() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.leaves))
}

// At returns the leaf at index.
func (l *Log) At(index uint64) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index >= uint64(len(l.leaves)) {
		return Record{}, false
	}
	return l.leaves[index], true
}

// ByTenant returns every record for tenant, in append order. The
// result is cached (invalidated on the next Append for that tenant) so
// a dashboard polling the same tenant repeatedly doesn't re-walk the
// index map each call.
func (l *Log) ByTenant(tenant ids.TenantID) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cached, ok := l.queryCache.Get(tenant); ok {
		return cached.([]Record)
	}
	idxs := l.indexByTenant[tenant]
	out := make([]Record, len(idxs))
	for i, idx := range idxs {
		out[i] = l.leaves[idx]
	}
	l.queryCache.Add(tenant, out)
	return out
}

// ByKind returns every record of the given kind across all tenants, in
// append order. Unlike ByTenant this is an uncached linear scan: kind
// queries are for operator diagnostics, not a hot per-tenant path.
func (l *Log) ByKind(kind Kind) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Record
	for _, r := range l.leaves {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Wait blocks until a leaf is appended after afterIndex, or stop is
// closed. It returns true if a new leaf arrived, false if stop fired
// first.
func (l *Log) Wait(afterIndex uint64, stop <-chan struct{}) bool {
	for {
		l.mu.Lock()
		if uint64(len(l.leaves)) > afterIndex {
			l.mu.Unlock()
			return true
		}
		w := l.sig.NewWaiter()
		l.mu.Unlock()

		select {
		case <-w.C():
		case <-stop:
			return false
		}
	}
}
