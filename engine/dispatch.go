package engine

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/qvmkernel/qvmcore/audit"
	"github.com/qvmkernel/qvmcore/cap"
	"github.com/qvmkernel/qvmcore/firewall"
	"github.com/qvmkernel/qvmcore/graph"
	"github.com/qvmkernel/qvmcore/ids"
	"github.com/qvmkernel/qvmcore/qubit"
	"github.com/qvmkernel/qvmcore/resource"
	"github.com/qvmkernel/qvmcore/verify"
)

// execContext is the per-job state LOAD initializes and EXECUTE
// mutates: the event map, which VQs/channels this job still owns (so
// UNLOAD knows what to clean up), and the VQ -> profile map Free needs
// to charge the right cost back to the pool.
type execContext struct {
	events       map[ids.EVID]int
	liveVQs      map[ids.VQID]bool
	profileOf    map[ids.VQID]qubit.Profile
	openChannels map[ids.CHID]bool
	sim          *qubit.Simulator
}

// runJob executes LOAD -> EXECUTE -> UNLOAD for one job, in order,
// with UNLOAD always running on the way out regardless of how EXECUTE
// ended (spec.md §4.7 phase 3's "this phase runs on every exit path").
func (m *Manager) runJob(session *Session, job *Job, g *graph.Graph, tok *cap.Token, jobSeed []byte) {
	job.setState(StateRunning)

	ectx := &execContext{
		events:       make(map[ids.EVID]int),
		liveVQs:      make(map[ids.VQID]bool),
		profileOf:    make(map[ids.VQID]qubit.Profile),
		openChannels: make(map[ids.CHID]bool),
		sim:          qubit.NewSimulator(jobSeed, m.templates),
	}

	m.audit(job, session.Tenant, audit.KindJobLoaded, "", "")

	cancelled := m.execute(session, job, g, tok, ectx)

	m.unload(session, job, ectx)

	res := job.finish(cancelled)
	kind := audit.KindJobCompleted
	switch res.State {
	case StateFailed:
		kind = audit.KindJobFailed
	case StateCancelled:
		kind = audit.KindJobCancelled
	}
	m.audit(job, session.Tenant, kind, "", "")
	jobsStarted().AddWithLabel(1, map[string]string{"state": string(res.State)})
}

// execute runs phase 2: dispatch every node in topological order,
// stopping at the first failure or cancellation. It returns true if the
// job was cancelled (as opposed to running to completion or failing).
func (m *Manager) execute(session *Session, job *Job, g *graph.Graph, tok *cap.Token, ectx *execContext) bool {
	order, err := verify.TopologicalOrder(g)
	if err != nil {
		job.fail("", fmt.Errorf("engine: topological order: %w", err))
		return false
	}

	cancelled := false
	job.choes.Go(func(stop chan struct{}) {
		for i, nodeID := range order {
			select {
			case <-stop:
				cancelled = true
				return
			default:
			}

			n, ok := g.NodeByID(nodeID)
			if !ok {
				job.fail(nodeID, fmt.Errorf("engine: node %q vanished", nodeID))
				return
			}
			job.setCurrent(nodeID, Progress{NodesDispatched: i, NodesTotal: len(order)})

			if !n.Guard.Eval(ectx.events) {
				continue
			}

			if err := m.mediator.Check(tok, n.Op); err != nil {
				job.fail(nodeID, err)
				m.audit(job, session.Tenant, audit.KindAccessDenied, nodeID, err.Error())
				return
			}

			if err := m.dispatchNode(session, job, n, ectx); err != nil {
				job.fail(nodeID, err)
				nodesRun().AddWithLabel(1, map[string]string{"result": "failed"})
				return
			}
			nodesRun().AddWithLabel(1, map[string]string{"result": "ok"})
			m.audit(job, session.Tenant, audit.KindOperationExecuted, nodeID, string(n.Op))
		}
		job.setCurrent("", Progress{NodesDispatched: len(order), NodesTotal: len(order)})
	})
	job.choes.Wait()
	return cancelled
}

// dispatchNode runs one node's opcode against the shared collaborators,
// per spec.md §4.7 phase 2c's dispatch table.
func (m *Manager) dispatchNode(session *Session, job *Job, n graph.Node, ectx *execContext) error {
	shape := verify.Shape(n.Op)

	switch n.Op {
	case cap.OpAllocLQ:
		count, profile, err := decodeAllocArgs(n.Args)
		if err != nil {
			return err
		}
		if uint64(len(ectx.liveVQs))+count > session.Quota.MaxLiveVQs {
			return resource.ErrInsufficientCapacity
		}
		if err := m.pool.Alloc(session.Tenant, count, uint64(profile.PhysicalPerLogical)); err != nil {
			return err
		}
		for _, vq := range n.VQs {
			if err := ectx.sim.Alloc(vq, profile); err != nil {
				return err
			}
			m.firewall.RegisterOwner(vq, session.Tenant)
			ectx.liveVQs[vq] = true
			ectx.profileOf[vq] = profile
		}
		return nil

	case cap.OpFreeLQ:
		for _, vq := range n.VQs {
			if err := m.freeVQ(session, vq, ectx); err != nil {
				return err
			}
		}
		return nil

	case cap.OpReset:
		for _, vq := range n.VQs {
			if err := ectx.sim.Reset(vq); err != nil {
				return err
			}
		}
		return nil

	case cap.OpOpenChan:
		peer, err := decodeChanPeers(n.Args)
		if err != nil {
			return err
		}
		chID, ok := verify.ChanID(n)
		if !ok {
			return ErrMalformedArgs
		}
		if err := m.firewall.OpenChannel(chID, session.Tenant, peer); err != nil {
			return err
		}
		ectx.openChannels[chID] = true
		return nil

	case cap.OpCloseChan:
		chID, ok := verify.ChanID(n)
		if !ok {
			return ErrMalformedArgs
		}
		if err := m.firewall.CloseChannel(chID); err != nil {
			return err
		}
		delete(ectx.openChannels, chID)
		return nil

	case cap.OpApplyCNOT, cap.OpApplyCZ, cap.OpApplySWAP, cap.OpTeleportCNOT:
		if len(n.VQs) != 2 {
			return ErrMalformedArgs
		}
		chID, _ := verify.ChanID(n)
		if err := m.firewall.MayEntangle(n.VQs[0], n.VQs[1], chID); err != nil {
			return err
		}
		events, err := ectx.sim.Apply(n.Op, n.VQs, n.Produces, n.Args)
		if err != nil {
			return err
		}
		if n.Op != cap.OpApplySWAP {
			if err := m.firewall.Entangle(n.VQs[0], n.VQs[1]); err != nil {
				return err
			}
		}
		mergeEvents(job, ectx, events)
		return nil

	case cap.OpMeasureZ, cap.OpMeasureX:
		events, err := ectx.sim.Apply(n.Op, n.VQs, n.Produces, n.Args)
		if err != nil {
			return err
		}
		mergeEvents(job, ectx, events)
		for _, vq := range n.VQs {
			if err := m.freeVQ(session, vq, ectx); err != nil {
				return err
			}
		}
		return nil

	case cap.OpMeasureBell:
		events, err := ectx.sim.Apply(n.Op, n.VQs, n.Produces, n.Args)
		if err != nil {
			return err
		}
		mergeEvents(job, ectx, events)
		for _, vq := range n.VQs {
			if err := m.freeVQ(session, vq, ectx); err != nil {
				return err
			}
		}
		return nil

	case cap.OpFenceEpoch, cap.OpBeginREV, cap.OpEndREV:
		return nil

	default:
		if shape.PassThroughVQ {
			_, err := ectx.sim.Apply(n.Op, n.VQs, n.Produces, n.Args)
			return err
		}
		return fmt.Errorf("engine: %w: %s", ErrMalformedArgs, n.Op)
	}
}

func mergeEvents(job *Job, ectx *execContext, events map[ids.EVID]int) {
	for ev, v := range events {
		ectx.events[ev] = v
		job.recordEvent(ev, v)
	}
}

// freeVQ retires vq from every collaborator that tracks it: the
// simulator, the firewall's ownership/entanglement relation, the
// resource pool's ledger, and this job's live-VQ tracking list.
func (m *Manager) freeVQ(session *Session, vq ids.VQID, ectx *execContext) error {
	profile, ok := ectx.profileOf[vq]
	if !ok {
		return firewall.ErrUnknownVQ
	}
	if err := ectx.sim.Free(vq); err != nil {
		return err
	}
	m.firewall.Forget(vq)
	if err := m.pool.Free(session.Tenant, 1, uint64(profile.PhysicalPerLogical)); err != nil {
		return err
	}
	delete(ectx.liveVQs, vq)
	delete(ectx.profileOf, vq)
	return nil
}

// unload runs phase 3: free every VQ still tracked live and close every
// channel this job opened and never closed. It runs unconditionally and
// never propagates an error — only logs it — per spec.md §4.7 phase 3.
func (m *Manager) unload(session *Session, job *Job, ectx *execContext) {
	for vq := range ectx.liveVQs {
		if err := m.freeVQ(session, vq, ectx); err != nil {
			log.Error("engine: unload failed to free VQ", "job", job.ID, "vq", vq, "err", err)
			m.audit(job, session.Tenant, audit.KindUnloadError, "", fmt.Sprintf("free %s: %v", vq, err))
		}
	}
	for ch := range ectx.openChannels {
		if err := m.firewall.CloseChannel(ch); err != nil {
			log.Error("engine: unload failed to close channel", "job", job.ID, "chan", ch, "err", err)
			m.audit(job, session.Tenant, audit.KindUnloadError, "", fmt.Sprintf("close %s: %v", ch, err))
		}
	}
}

func (m *Manager) audit(job *Job, tenant ids.TenantID, kind audit.Kind, node ids.NodeID, detail string) {
	if m.auditLog == nil {
		return
	}
	m.auditLog.Append(audit.Record{
		Tenant:    tenant,
		JobID:     job.ID.String(),
		Kind:      kind,
		NodeID:    node,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
}
