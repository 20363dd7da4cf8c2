package engine

import (
	stderrors "errors"
	"sync"
	"time"

	"github.com/qvmkernel/qvmcore/audit"
	"github.com/qvmkernel/qvmcore/cap"
	"github.com/qvmkernel/qvmcore/cry"
	"github.com/qvmkernel/qvmcore/firewall"
	"github.com/qvmkernel/qvmcore/graph"
	"github.com/qvmkernel/qvmcore/ids"
	"github.com/qvmkernel/qvmcore/metrics"
	"github.com/qvmkernel/qvmcore/resource"
	"github.com/qvmkernel/qvmcore/verify"
)

var (
	// ErrQuotaExceeded is returned by Submit when the session's
	// max_concurrent_jobs budget has no room for another job.
	ErrQuotaExceeded = stderrors.New("engine: job quota exceeded")
	// ErrCertificateMismatch is returned when a certificate's graph
	// hash doesn't match the graph it's presented alongside.
	ErrCertificateMismatch = stderrors.New("engine: certificate does not match graph or token")
	// ErrNotFound is returned when a job handle is unknown.
	ErrNotFound = stderrors.New("engine: job not found")
	// ErrTimeout is returned by Wait when the deadline elapses first.
	ErrTimeout = stderrors.New("engine: wait timed out")
)

var (
	jobsStarted  = metrics.LazyLoadCounterVec("qvm_engine_jobs_total", []string{"state"})
	jobDuration  = metrics.LazyLoadHistogram("qvm_engine_job_duration_ms", []int64{1, 5, 10, 50, 100, 500, 1000, 5000})
	nodesRun     = metrics.LazyLoadCounterVec("qvm_engine_nodes_total", []string{"result"})
)

// Manager runs jobs against the kernel's shared resource manager,
// firewall, mediator and audit log. One Manager typically backs one
// process; Sessions (and their per-job semaphores) are independent of
// each other but share these four collaborators, matching spec.md §5's
// "shared mutable state" list.
type Manager struct {
	pool      *resource.Pool
	firewall  *firewall.Firewall
	mediator  *cap.Mediator
	auditLog  *audit.Log
	templates *resource.TemplateCache

	mu   sync.Mutex
	jobs map[ids.Hash32]*Job
}

// NewManager wires a Manager to its four shared collaborators.
func NewManager(pool *resource.Pool, fw *firewall.Firewall, med *cap.Mediator, auditLog *audit.Log, templates *resource.TemplateCache) *Manager {
	return &Manager{
		pool:      pool,
		firewall:  fw,
		mediator:  med,
		auditLog:  auditLog,
		templates: templates,
		jobs:      make(map[ids.Hash32]*Job),
	}
}

// Submit admits (graph, cert, token) for execution under session,
// matching spec.md §6.3's submit(session_id, graph, token). Admission
// errors (quota, certificate mismatch) abort before any state mutation;
// once admitted, the job runs asynchronously and Submit returns
// immediately with its handle.
func (m *Manager) Submit(session *Session, g *graph.Graph, cert *verify.Certificate, tok *cap.Token) (ids.Hash32, error) {
	if cert.TokenID != tok.ID {
		return ids.Hash32{}, ErrCertificateMismatch
	}
	encoded, err := graph.Encode(g)
	if err != nil {
		return ids.Hash32{}, ErrCertificateMismatch
	}
	sum := cry.Sum(encoded)
	if ids.BytesToHash32(sum[:]) != cert.GraphHash {
		return ids.Hash32{}, ErrCertificateMismatch
	}

	if !session.jobSem.TryAcquire(1) {
		jobsStarted().AddWithLabel(1, map[string]string{"state": "quota_exceeded"})
		return ids.Hash32{}, ErrQuotaExceeded
	}

	seed := session.nextJobSeed()
	idSum := cry.Sum(cert.GraphHash.Bytes(), seed)
	jobID := ids.BytesToHash32(idSum[:])
	job := newJob(jobID, cert.GraphHash)

	m.mu.Lock()
	m.jobs[jobID] = job
	m.mu.Unlock()

	go func() {
		defer session.jobSem.Release(1)
		start := time.Now()
		m.runJob(session, job, g, tok, seed)
		jobDuration().Observe(time.Since(start).Milliseconds())
	}()

	return jobID, nil
}

func (m *Manager) lookup(jobID ids.Hash32) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return j, nil
}

// Status returns a job's current snapshot.
func (m *Manager) Status(jobID ids.Hash32) (Status, error) {
	j, err := m.lookup(jobID)
	if err != nil {
		return Status{}, err
	}
	return j.status(), nil
}

// Cancel cooperatively stops a running job: the per-node dispatch loop
// observes the stop signal between nodes, never mid-node.
func (m *Manager) Cancel(jobID ids.Hash32) error {
	j, err := m.lookup(jobID)
	if err != nil {
		return err
	}
	j.choes.Stop()
	return nil
}

// Wait blocks until jobID reaches a terminal state or timeout elapses.
func (m *Manager) Wait(jobID ids.Hash32, timeout time.Duration) (Result, error) {
	j, err := m.lookup(jobID)
	if err != nil {
		return Result{}, err
	}
	select {
	case <-j.done:
		return j.result(), nil
	case <-time.After(timeout):
		return Result{}, ErrTimeout
	}
}
