package graph

import (
	"fmt"

	"github.com/qvmkernel/qvmcore/cap"
	"github.com/qvmkernel/qvmcore/ids"
)

// NodeBuilder makes it easy to build a Node value field by field.
type NodeBuilder struct {
	n Node
}

// NewNode starts building a node with the given id and opcode.
func NewNode(id ids.NodeID, op cap.Opcode) *NodeBuilder {
	return &NodeBuilder{n: Node{ID: id, Op: op}}
}

// VQs sets the virtual-qubit handles this node consumes/produces.
func (b *NodeBuilder) VQs(vqs ...ids.VQID) *NodeBuilder {
	b.n.VQs = vqs
	return b
}

// Produces sets the classical event handles this node introduces.
func (b *NodeBuilder) Produces(evs ...ids.EVID) *NodeBuilder {
	b.n.Produces = evs
	return b
}

// Args sets the node's opcode-dependent scalar argument map.
func (b *NodeBuilder) Args(args map[string]any) *NodeBuilder {
	b.n.Args = args
	return b
}

// Caps sets the capabilities the node declares it needs.
func (b *NodeBuilder) Caps(c cap.Capability) *NodeBuilder {
	b.n.Caps = c
	return b
}

// Deps sets the node ids this node depends on.
func (b *NodeBuilder) Deps(deps ...ids.NodeID) *NodeBuilder {
	b.n.Deps = deps
	return b
}

// Guard sets the node's execution guard.
func (b *NodeBuilder) Guard(g *Guard) *NodeBuilder {
	b.n.Guard = g
	return b
}

// Build returns the built Node.
func (b *NodeBuilder) Build() Node {
	return b.n
}

// Builder accumulates nodes and metadata into a Graph.
type Builder struct {
	version  string
	nodes    []Node
	metadata map[string]any
}

// NewBuilder starts building a graph with the given version string.
func NewBuilder(version string) *Builder {
	return &Builder{version: version}
}

// Node appends a node to the graph under construction.
func (b *Builder) Node(n Node) *Builder {
	b.nodes = append(b.nodes, n)
	return b
}

// Metadata sets a single metadata key.
func (b *Builder) Metadata(key string, value any) *Builder {
	if b.metadata == nil {
		b.metadata = make(map[string]any)
	}
	b.metadata[key] = value
	return b
}

// Build finalizes the graph. It returns an error only for structural
// well-formedness violations (duplicate node ids, empty opcode) —
// every richer invariant (I1-I8) is the verifier's job, not the
// builder's.
func (b *Builder) Build() (*Graph, error) {
	byID := make(map[ids.NodeID]int, len(b.nodes))
	for i, n := range b.nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("graph: node at index %d has empty id", i)
		}
		if n.Op == "" {
			return nil, fmt.Errorf("graph: node %q has empty opcode", n.ID)
		}
		if _, known := cap.RequiredCaps(n.Op); !known {
			return nil, fmt.Errorf("graph: node %q has unknown opcode %q", n.ID, n.Op)
		}
		if _, dup := byID[n.ID]; dup {
			return nil, fmt.Errorf("graph: duplicate node id %q", n.ID)
		}
		byID[n.ID] = i
	}
	return &Graph{
		version:  b.version,
		nodes:    append([]Node(nil), b.nodes...),
		metadata: b.metadata,
		byID:     byID,
	}, nil
}
