package graph

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/qvmkernel/qvmcore/cap"
	"github.com/qvmkernel/qvmcore/ids"
)

// wireGraph is the canonical on-wire shape of a Graph (spec §6.1).
type wireGraph struct {
	Version  string         `json:"version"`
	Nodes    []wireNode     `json:"nodes"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type wireNode struct {
	ID       string         `json:"id"`
	Op       string         `json:"op"`
	VQs      []string       `json:"vqs,omitempty"`
	Produces []string       `json:"produces,omitempty"`
	Args     map[string]any `json:"args,omitempty"`
	Caps     []string       `json:"caps,omitempty"`
	Deps     []string       `json:"deps,omitempty"`
	Guard    *wireGuard     `json:"guard,omitempty"`
}

type wireGuard struct {
	Kind     string       `json:"kind"`
	Event    string       `json:"event,omitempty"`
	Value    *int         `json:"value,omitempty"`
	Children []*wireGuard `json:"children,omitempty"`
}

// Decode parses the canonical wire format into a Graph. In strict mode
// unknown top-level or node fields are rejected; in compatibility mode
// they are silently ignored, per spec §6.1.
func Decode(data []byte, strict bool) (*Graph, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if strict {
		dec.DisallowUnknownFields()
	}

	var wg wireGraph
	if err := dec.Decode(&wg); err != nil {
		return nil, fmt.Errorf("graph: decode: %w", err)
	}

	b := NewBuilder(wg.Version)
	for k, v := range wg.Metadata {
		b.Metadata(k, v)
	}

	for _, wn := range wg.Nodes {
		n, err := decodeNode(wn)
		if err != nil {
			return nil, err
		}
		b.Node(n)
	}
	return b.Build()
}

func decodeNode(wn wireNode) (Node, error) {
	n := Node{
		ID:   ids.NodeID(wn.ID),
		Op:   cap.Opcode(wn.Op),
		Args: wn.Args,
	}
	for _, v := range wn.VQs {
		n.VQs = append(n.VQs, ids.VQID(v))
	}
	for _, v := range wn.Produces {
		n.Produces = append(n.Produces, ids.EVID(v))
	}
	for _, v := range wn.Deps {
		n.Deps = append(n.Deps, ids.NodeID(v))
	}
	for _, c := range wn.Caps {
		bit, ok := cap.ParseCapability(c)
		if !ok {
			return Node{}, fmt.Errorf("graph: node %q declares unknown capability %q", wn.ID, c)
		}
		n.Caps |= bit
	}
	if wn.Guard != nil {
		g, err := decodeGuard(wn.Guard)
		if err != nil {
			return Node{}, fmt.Errorf("graph: node %q: %w", wn.ID, err)
		}
		n.Guard = g
	}
	return n, nil
}

func decodeGuard(wg *wireGuard) (*Guard, error) {
	switch GuardKind(wg.Kind) {
	case GuardTrue:
		return True(), nil
	case GuardFalse:
		return False(), nil
	case GuardEq:
		if wg.Value == nil {
			return nil, fmt.Errorf("guard: eq requires value")
		}
		return Eq(ids.EVID(wg.Event), *wg.Value), nil
	case GuardAnd:
		children := make([]*Guard, 0, len(wg.Children))
		for _, c := range wg.Children {
			g, err := decodeGuard(c)
			if err != nil {
				return nil, err
			}
			children = append(children, g)
		}
		return And(children...), nil
	default:
		return nil, fmt.Errorf("guard: unknown kind %q", wg.Kind)
	}
}

// Encode serializes g into the canonical wire format.
func Encode(g *Graph) ([]byte, error) {
	wg := wireGraph{
		Version:  g.version,
		Metadata: g.metadata,
		Nodes:    make([]wireNode, 0, len(g.nodes)),
	}
	for _, n := range g.nodes {
		wg.Nodes = append(wg.Nodes, encodeNode(n))
	}
	return json.Marshal(wg)
}

func encodeNode(n Node) wireNode {
	wn := wireNode{
		ID:   string(n.ID),
		Op:   string(n.Op),
		Args: n.Args,
	}
	for _, v := range n.VQs {
		wn.VQs = append(wn.VQs, string(v))
	}
	for _, v := range n.Produces {
		wn.Produces = append(wn.Produces, string(v))
	}
	for _, v := range n.Deps {
		wn.Deps = append(wn.Deps, string(v))
	}
	wn.Caps = n.Caps.Names()
	if n.Guard != nil {
		wn.Guard = encodeGuard(n.Guard)
	}
	return wn
}

func encodeGuard(g *Guard) *wireGuard {
	wg := &wireGuard{Kind: string(g.Kind)}
	if g.Kind == GuardEq {
		wg.Event = string(g.Event)
		v := g.Value
		wg.Value = &v
	}
	for _, c := range g.Children {
		wg.Children = append(wg.Children, encodeGuard(c))
	}
	return wg
}
