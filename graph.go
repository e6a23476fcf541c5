package topology

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Graph is an insertion-ordered arena of nodes and edges addressed by id.
// All readers and writers go through its methods; nothing reaches into the maps.
// A Graph is not safe for concurrent mutation.
type Graph struct {
	nodes     map[string]*GraphNode
	edges     map[string]*GraphEdge
	nodeOrder []string
	edgeOrder []string
	out       map[string][]string // node id -> outgoing edge ids
	in        map[string][]string // node id -> incoming edge ids
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*GraphNode),
		edges: make(map[string]*GraphEdge),
		out:   make(map[string][]string),
		in:    make(map[string][]string),
	}
}

// AddNode inserts a copy of n. An empty ID gets a UUID, an empty status
// becomes active. Returns the node id.
func (g *Graph) AddNode(n GraphNode) (string, error) {
	if err := n.Normalize(); err != nil {
		return "", err
	}
	if _, exists := g.nodes[n.ID]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
	}
	n.Capabilities = slices.Clone(n.Capabilities)
	g.nodes[n.ID] = &n
	g.nodeOrder = append(g.nodeOrder, n.ID)
	return n.ID, nil
}

// AddEdge inserts a copy of e. Both endpoints must already exist.
func (g *Graph) AddEdge(e GraphEdge) (string, error) {
	if _, ok := g.nodes[e.FromNodeID]; !ok {
		return "", &NodeNotFoundError{ID: e.FromNodeID}
	}
	if _, ok := g.nodes[e.ToNodeID]; !ok {
		return "", &NodeNotFoundError{ID: e.ToNodeID}
	}
	if err := e.Normalize(); err != nil {
		return "", err
	}
	if _, exists := g.edges[e.ID]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateEdge, e.ID)
	}
	g.edges[e.ID] = &e
	g.edgeOrder = append(g.edgeOrder, e.ID)
	g.out[e.FromNodeID] = append(g.out[e.FromNodeID], e.ID)
	g.in[e.ToNodeID] = append(g.in[e.ToNodeID], e.ID)
	return e.ID, nil
}

// RemoveNode deletes the node and every edge touching it.
func (g *Graph) RemoveNode(id string) error {
	if _, ok := g.nodes[id]; !ok {
		return &NodeNotFoundError{ID: id}
	}
	touching := append(slices.Clone(g.out[id]), g.in[id]...)
	for _, eid := range touching {
		// self-loops appear in both lists
		if _, ok := g.edges[eid]; ok {
			g.removeEdge(eid)
		}
	}
	delete(g.nodes, id)
	delete(g.out, id)
	delete(g.in, id)
	g.nodeOrder = slices.DeleteFunc(g.nodeOrder, func(n string) bool { return n == id })
	return nil
}

// RemoveEdge deletes a single edge.
func (g *Graph) RemoveEdge(id string) error {
	if _, ok := g.edges[id]; !ok {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}
	g.removeEdge(id)
	return nil
}

func (g *Graph) removeEdge(id string) {
	e := g.edges[id]
	isID := func(x string) bool { return x == id }
	g.out[e.FromNodeID] = slices.DeleteFunc(g.out[e.FromNodeID], isID)
	g.in[e.ToNodeID] = slices.DeleteFunc(g.in[e.ToNodeID], isID)
	g.edgeOrder = slices.DeleteFunc(g.edgeOrder, isID)
	delete(g.edges, id)
}

// Node returns the node with the given id. The pointer aliases graph storage.
func (g *Graph) Node(id string) (*GraphNode, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Edge returns the edge with the given id. The pointer aliases graph storage.
func (g *Graph) Edge(id string) (*GraphEdge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// HasNode reports whether id is a node of g.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return len(g.edges) }

// NodeIDs returns node ids in insertion order.
func (g *Graph) NodeIDs() []string {
	return slices.Clone(g.nodeOrder)
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*GraphNode {
	out := make([]*GraphNode, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []*GraphEdge {
	out := make([]*GraphEdge, 0, len(g.edgeOrder))
	for _, id := range g.edgeOrder {
		out = append(out, g.edges[id])
	}
	return out
}

// EdgesFrom returns the outgoing edges of a node regardless of status.
func (g *Graph) EdgesFrom(id string) []*GraphEdge {
	return g.collect(g.out[id])
}

// EdgesTo returns the incoming edges of a node regardless of status.
func (g *Graph) EdgesTo(id string) []*GraphEdge {
	return g.collect(g.in[id])
}

func (g *Graph) collect(ids []string) []*GraphEdge {
	out := make([]*GraphEdge, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.edges[id])
	}
	return out
}

// OutDegree counts outgoing edges of any status.
func (g *Graph) OutDegree(id string) int { return len(g.out[id]) }

// InDegree counts incoming edges of any status.
func (g *Graph) InDegree(id string) int { return len(g.in[id]) }

// SetNodeStatus changes a node's status.
func (g *Graph) SetNodeStatus(id string, status NodeStatus) error {
	n, ok := g.nodes[id]
	if !ok {
		return &NodeNotFoundError{ID: id}
	}
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	n.Status = status
	return nil
}

// SetEdgeStatus changes an edge's status.
func (g *Graph) SetEdgeStatus(id string, status EdgeStatus) error {
	e, ok := g.edges[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	e.Status = status
	return nil
}

// Clone returns a deep copy that can be mutated independently.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		nodes:     make(map[string]*GraphNode, len(g.nodes)),
		edges:     make(map[string]*GraphEdge, len(g.edges)),
		nodeOrder: slices.Clone(g.nodeOrder),
		edgeOrder: slices.Clone(g.edgeOrder),
		out:       make(map[string][]string, len(g.out)),
		in:        make(map[string][]string, len(g.in)),
	}
	for id, n := range g.nodes {
		cp := *n
		cp.Capabilities = slices.Clone(n.Capabilities)
		c.nodes[id] = &cp
	}
	for id, e := range g.edges {
		cp := *e
		c.edges[id] = &cp
	}
	for id, ids := range g.out {
		c.out[id] = slices.Clone(ids)
	}
	for id, ids := range g.in {
		c.in[id] = slices.Clone(ids)
	}
	return c
}

type graphJSON struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// MarshalJSON encodes the graph as {"nodes": [...], "edges": [...]}.
func (g *Graph) MarshalJSON() ([]byte, error) {
	doc := graphJSON{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
	for _, n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, *n)
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, *e)
	}
	return json.Marshal(doc)
}

// wire forms with an optional weight so an absent one defaults to 1.0.
type nodeJSON struct {
	GraphNode
	Weight *float64 `json:"weight"`
}

type edgeJSON struct {
	GraphEdge
	Weight *float64 `json:"weight"`
}

func weightOr1(w *float64) float64 {
	if w == nil {
		return 1.0
	}
	return *w
}

// UnmarshalJSON rebuilds the graph, rejecting dangling edges. Missing weights
// default to 1.0.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var doc struct {
		Nodes []nodeJSON `json:"nodes"`
		Edges []edgeJSON `json:"edges"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	nodes := make([]GraphNode, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		n.GraphNode.Weight = weightOr1(n.Weight)
		nodes = append(nodes, n.GraphNode)
	}
	edges := make([]GraphEdge, 0, len(doc.Edges))
	for _, e := range doc.Edges {
		e.GraphEdge.Weight = weightOr1(e.Weight)
		edges = append(edges, e.GraphEdge)
	}
	built, err := Build(nodes, edges)
	if err != nil {
		return err
	}
	*g = *built
	return nil
}

// Build assembles a graph from flat node and edge lists, as loaded from storage.
func Build(nodes []GraphNode, edges []GraphEdge) (*Graph, error) {
	g := NewGraph()
	for _, n := range nodes {
		if _, err := g.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, e := range edges {
		if _, err := g.AddEdge(e); err != nil {
			return nil, err
		}
	}
	return g, nil
}
