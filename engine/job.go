package engine

import (
	"sync"
	"time"

	"github.com/qvmkernel/qvmcore/co"
	"github.com/qvmkernel/qvmcore/ids"
)

// State names a job's position in the Loaded -> Running ->
// (Completed|Failed|Cancelled) state machine (spec.md §4.7).
type State string

const (
	StateLoaded    State = "Loaded"
	StateRunning   State = "Running"
	StateCompleted State = "Completed"
	StateFailed    State = "Failed"
	StateCancelled State = "Cancelled"
)

// Progress reports how far a job's dispatch loop has gotten.
type Progress struct {
	NodesDispatched int
	NodesTotal      int
}

// Result is a job's terminal outcome, returned by Wait.
type Result struct {
	State        State
	Events       map[ids.EVID]int
	FailedNode   ids.NodeID
	FailureError error
}

// Job is one submitted execution's live handle. The engine mutates
// State/CurrentNode/Events/err under mu; Manager's Status/Cancel/Wait
// read it back through the same lock.
type Job struct {
	ID        ids.Hash32
	GraphHash ids.Hash32
	Submitted time.Time

	mu          sync.Mutex
	state       State
	current     ids.NodeID
	progress    Progress
	events      map[ids.EVID]int
	failErr     error
	failNode    ids.NodeID

	choes *co.Choes
	done  chan struct{}
}

func newJob(id, graphHash ids.Hash32) *Job {
	return &Job{
		ID:        id,
		GraphHash: graphHash,
		Submitted: time.Now().UTC(),
		state:     StateLoaded,
		events:    make(map[ids.EVID]int),
		choes:     co.NewChoes(),
		done:      make(chan struct{}),
	}
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

func (j *Job) setCurrent(n ids.NodeID, p Progress) {
	j.mu.Lock()
	j.current = n
	j.progress = p
	j.mu.Unlock()
}

func (j *Job) recordEvent(ev ids.EVID, v int) {
	j.mu.Lock()
	j.events[ev] = v
	j.mu.Unlock()
}

func (j *Job) fail(node ids.NodeID, err error) {
	j.mu.Lock()
	j.state = StateFailed
	j.failNode = node
	j.failErr = err
	j.mu.Unlock()
}

// Status is a point-in-time snapshot of a job, matching spec.md §6.3's
// status(job_handle) -> {state, events_so_far, progress}.
type Status struct {
	State       State
	EventsSoFar map[ids.EVID]int
	Progress    Progress
	CurrentNode ids.NodeID
}

func (j *Job) status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	evs := make(map[ids.EVID]int, len(j.events))
	for k, v := range j.events {
		evs[k] = v
	}
	return Status{State: j.state, EventsSoFar: evs, Progress: j.progress, CurrentNode: j.current}
}

// result reads back a finished job's terminal outcome. Callers must
// only call this after done has closed.
func (j *Job) result() Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	evs := make(map[ids.EVID]int, len(j.events))
	for k, v := range j.events {
		evs[k] = v
	}
	return Result{State: j.state, Events: evs, FailedNode: j.failNode, FailureError: j.failErr}
}

// finish marks the job done and wakes any Wait callers, computing its
// terminal State from whatever EXECUTE left behind (Failed/Cancelled
// take priority over whatever the loop would otherwise report).
func (j *Job) finish(cancelled bool) Result {
	j.mu.Lock()
	if cancelled && j.state != StateFailed {
		j.state = StateCancelled
	} else if j.state != StateFailed {
		j.state = StateCompleted
	}
	res := Result{State: j.state, Events: j.events, FailedNode: j.failNode, FailureError: j.failErr}
	j.mu.Unlock()
	close(j.done)
	return res
}
