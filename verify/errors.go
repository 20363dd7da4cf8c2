// Package verify implements the static verifier (component C3): a
// single-pass, reject-early certifier that decides whether a graph,
// together with a capability token, is admissible for execution.
package verify

import (
	"fmt"

	"github.com/qvmkernel/qvmcore/ids"
)

// Stage names the verifier pass that rejected a graph.
type Stage string

const (
	StageStructural Stage = "structural"
	StageTopology   Stage = "topology"
	StageLinearity  Stage = "linearity"
	StageGuards     Stage = "guards"
	StageCapability Stage = "capability_coverage"
	StageFirewall   Stage = "firewall_intent"
	StageREV        Stage = "rev_marking"
)

// Kind names the specific rule a stage's failure violates.
type Kind string

const (
	KindMalformed            Kind = "Malformed"
	KindCyclic               Kind = "Cyclic"
	KindDangling             Kind = "Dangling"
	KindUseAfterFree         Kind = "UseAfterFree"
	KindReDefinition         Kind = "ReDefinition"
	KindLeaked               Kind = "Leaked"
	KindGuardOutOfScope      Kind = "GuardOutOfScope"
	KindCapabilityCoverage   Kind = "CapabilityCoverage"
	KindUnderDeclared        Kind = "UnderDeclaredCapability"
	KindFirewallIntent       Kind = "FirewallIntent"
	KindREVCheckpointMissing Kind = "REVCheckpointMissing"
)

// VerificationError reports the stage, rule and offending node/handle
// that caused certification to fail.
type VerificationError struct {
	Stage  Stage
	Kind   Kind
	Node   ids.NodeID
	Handle string
	Msg    string
}

func (e *VerificationError) Error() string {
	where := ""
	switch {
	case e.Node != "" && e.Handle != "":
		where = fmt.Sprintf(" (node %q, handle %q)", e.Node, e.Handle)
	case e.Node != "":
		where = fmt.Sprintf(" (node %q)", e.Node)
	case e.Handle != "":
		where = fmt.Sprintf(" (handle %q)", e.Handle)
	}
	return fmt.Sprintf("verify[%s]: %s%s: %s", e.Stage, e.Kind, where, e.Msg)
}

func fail(stage Stage, kind Kind, node ids.NodeID, handle string, format string, args ...any) error {
	return &VerificationError{
		Stage:  stage,
		Kind:   kind,
		Node:   node,
		Handle: handle,
		Msg:    fmt.Sprintf(format, args...),
	}
}
