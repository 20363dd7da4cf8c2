package engine

import (
	stderrors "errors"
	"time"

	"github.com/qvmkernel/qvmcore/ids"
	"github.com/qvmkernel/qvmcore/qubit"
)

// ErrMalformedArgs is returned when a node's args don't match what its
// opcode requires, per spec.md §3's "args are well-typed" structural
// rule. The verifier does not check args types (its structural stage
// checks node ids and opcodes only), so this is where they are checked,
// since args values are untyped `any` on the wire.
var ErrMalformedArgs = stderrors.New("engine: malformed node args")

func argFloat(args map[string]any, key string) (float64, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func argString(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// decodeAllocArgs reads ALLOC_LQ's args.n and args.profile.
func decodeAllocArgs(args map[string]any) (n uint64, profile qubit.Profile, err error) {
	nf, ok := argFloat(args, "n")
	if !ok || nf <= 0 {
		return 0, profile, ErrMalformedArgs
	}
	raw, ok := args["profile"]
	if !ok {
		return 0, profile, ErrMalformedArgs
	}
	pm, ok := raw.(map[string]any)
	if !ok {
		return 0, profile, ErrMalformedArgs
	}

	profile.CodeFamily, _ = argString(pm, "code_family")
	if d, ok := argFloat(pm, "distance"); ok {
		profile.Distance = int(d)
	}
	if p, ok := argFloat(pm, "physical_per_logical"); ok {
		profile.PhysicalPerLogical = int(p)
	} else {
		return 0, profile, ErrMalformedArgs
	}
	if c, ok := argFloat(pm, "cycle_time_ns"); ok {
		profile.CycleTime = time.Duration(c)
	}
	if e, ok := argFloat(pm, "physical_error_rate"); ok {
		profile.PhysicalErrorRate = e
	}

	return uint64(nf), profile, nil
}

// decodeChanPeers reads OPEN_CHAN's args.peer_tenant, the foreign
// tenant this session is bridging to (the session's own tenant is
// always the other endpoint).
func decodeChanPeers(args map[string]any) (ids.TenantID, error) {
	s, ok := argString(args, "peer_tenant")
	if !ok {
		return ids.TenantID{}, ErrMalformedArgs
	}
	t, err := ids.ParseTenantID(s)
	if err != nil {
		return ids.TenantID{}, ErrMalformedArgs
	}
	return t, nil
}
