package match

import "github.com/roach88/graphlite/schema"

// ElementMatch is any match expression.
type ElementMatch interface {
	// Schema is the schema of the elements the match yields.
	Schema() *schema.Schema
	elementMatch()
}

// NodeMatch yields nodes.
type NodeMatch interface {
	ElementMatch
	nodeMatch()
}

// EdgeMatch yields edges.
type EdgeMatch interface {
	ElementMatch
	edgeMatch()
}

// Direction filters connections by which side of the edge the node is on.
type Direction int

const (
	// AnyDirection ignores connection direction.
	AnyDirection Direction = iota
	// Out follows connections where the node is the edge's source.
	Out
	// In follows connections where the node is the edge's target.
	In
)

func (d Direction) String() string {
	switch d {
	case Out:
		return "out"
	case In:
		return "in"
	default:
		return "any"
	}
}

// NodesBySchema selects nodes of one schema.
//
// Semantics:
//
//	SELECT Element.id, Element.handle FROM Element
//	WHERE <schema and type match> AND (<Filter>) ORDER BY <Sort>
type NodesBySchema struct {
	Of     *schema.Schema
	Filter Where // nil = no filter
	Sort   Order // nil = storage order
}

func (m *NodesBySchema) Schema() *schema.Schema {
	if m == nil {
		return nil
	}
	return m.Of
}
func (*NodesBySchema) elementMatch() {}
func (*NodesBySchema) nodeMatch()    {}

// Where returns a copy of m with its filter set to w.
func (m *NodesBySchema) Where(w Where) *NodesBySchema {
	c := *m
	c.Filter = w
	return &c
}

// OrderBy returns a copy of m sorted by o.
func (m *NodesBySchema) OrderBy(o Order) *NodesBySchema {
	c := *m
	c.Sort = o
	return &c
}

// EdgesBySchema selects edges of one schema.
type EdgesBySchema struct {
	Of     *schema.Schema
	Filter Where
	Sort   Order
}

func (m *EdgesBySchema) Schema() *schema.Schema {
	if m == nil {
		return nil
	}
	return m.Of
}
func (*EdgesBySchema) elementMatch() {}
func (*EdgesBySchema) edgeMatch()    {}

func (m *EdgesBySchema) Where(w Where) *EdgesBySchema {
	c := *m
	c.Filter = w
	return &c
}

func (m *EdgesBySchema) OrderBy(o Order) *EdgesBySchema {
	c := *m
	c.Sort = o
	return &c
}

// EdgesFromNodes selects the Edges connected to any node of From, keeping
// only connections in Direction.
type EdgesFromNodes struct {
	From      NodeMatch
	Edges     EdgeMatch
	Direction Direction
}

func (m *EdgesFromNodes) Schema() *schema.Schema {
	if m == nil || m.Edges == nil {
		return nil
	}
	return m.Edges.Schema()
}
func (*EdgesFromNodes) elementMatch() {}
func (*EdgesFromNodes) edgeMatch()    {}

// NodeRole selects which incident nodes of an edge to travel to.
type NodeRole int

const (
	// AnyRole travels to every incident node.
	AnyRole NodeRole = iota
	// SourceRole travels to nodes the edge leaves from.
	SourceRole
	// TargetRole travels to nodes the edge points at.
	TargetRole
)

func (r NodeRole) String() string {
	switch r {
	case SourceRole:
		return "source"
	case TargetRole:
		return "target"
	default:
		return "any"
	}
}

// NodesFromEdges selects the Nodes incident to any edge of From.
type NodesFromEdges struct {
	From  EdgeMatch
	Nodes NodeMatch
	Role  NodeRole
}

func (m *NodesFromEdges) Schema() *schema.Schema {
	if m == nil || m.Nodes == nil {
		return nil
	}
	return m.Nodes.Schema()
}
func (*NodesFromEdges) elementMatch() {}
func (*NodesFromEdges) nodeMatch()    {}

// NeighbourNodes selects the Nodes sharing an edge with any node of From.
// Role describes the neighbour's side of that shared edge.
type NeighbourNodes struct {
	From  NodeMatch
	Nodes NodeMatch
	Role  NodeRole
}

func (m *NeighbourNodes) Schema() *schema.Schema {
	if m == nil || m.Nodes == nil {
		return nil
	}
	return m.Nodes.Schema()
}
func (*NeighbourNodes) elementMatch() {}
func (*NeighbourNodes) nodeMatch()    {}

// Nodes selects every node of s.
func Nodes(s *schema.Schema) *NodesBySchema { return &NodesBySchema{Of: s} }

// Edges selects every edge of s.
func Edges(s *schema.Schema) *EdgesBySchema { return &EdgesBySchema{Of: s} }

// Outgoing travels from nodes to the edges leaving them.
func Outgoing(from NodeMatch, edges EdgeMatch) EdgeMatch {
	return &EdgesFromNodes{From: from, Edges: edges, Direction: Out}
}

// Incoming travels from nodes to the edges pointing at them.
func Incoming(from NodeMatch, edges EdgeMatch) EdgeMatch {
	return &EdgesFromNodes{From: from, Edges: edges, Direction: In}
}

// Via travels from nodes to every connected edge.
func Via(from NodeMatch, edges EdgeMatch) EdgeMatch {
	return &EdgesFromNodes{From: from, Edges: edges, Direction: AnyDirection}
}

// Endpoints travels from edges to every incident node.
func Endpoints(from EdgeMatch, nodes NodeMatch) NodeMatch {
	return &NodesFromEdges{From: from, Nodes: nodes, Role: AnyRole}
}

// Sources travels from edges to the nodes they leave from.
func Sources(from EdgeMatch, nodes NodeMatch) NodeMatch {
	return &NodesFromEdges{From: from, Nodes: nodes, Role: SourceRole}
}

// Targets travels from edges to the nodes they point at.
func Targets(from EdgeMatch, nodes NodeMatch) NodeMatch {
	return &NodesFromEdges{From: from, Nodes: nodes, Role: TargetRole}
}

// Adjacent travels to nodes sharing any edge.
func Adjacent(from NodeMatch, nodes NodeMatch) NodeMatch {
	return &NeighbourNodes{From: from, Nodes: nodes, Role: AnyRole}
}

// SourceNeighbours travels to nodes that are the source of an edge
// shared with from.
func SourceNeighbours(from NodeMatch, nodes NodeMatch) NodeMatch {
	return &NeighbourNodes{From: from, Nodes: nodes, Role: SourceRole}
}

// TargetNeighbours travels to nodes that are the target of an edge
// shared with from.
func TargetNeighbours(from NodeMatch, nodes NodeMatch) NodeMatch {
	return &NeighbourNodes{From: from, Nodes: nodes, Role: TargetRole}
}
