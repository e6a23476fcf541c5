package engine

import (
	"container/heap"
	"slices"

	"github.com/meikuraledutech/topology"
)

// traversable reports whether e may be followed during pathfinding.
func traversable(g *topology.Graph, e *topology.GraphEdge) bool {
	if !e.Status.IsActive() {
		return false
	}
	n, ok := g.Node(e.ToNodeID)
	return ok && n.IsActive()
}

type frontierItem struct {
	node string
	dist float64
	seq  int
}

// frontier is a min-heap on distance; seq breaks ties in discovery order.
type frontier []frontierItem

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].dist != f[j].dist {
		return f[i].dist < f[j].dist
	}
	return f[i].seq < f[j].seq
}
func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)   { *f = append(*f, x.(frontierItem)) }
func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}

// dijkstra computes distances from src. When target is non-empty the search
// stops as soon as target is settled. prev maps a node to the edge used to
// reach it.
func dijkstra(g *topology.Graph, src, target string) (dist map[string]float64, prev map[string]string) {
	dist = map[string]float64{src: 0}
	prev = map[string]string{}
	settled := map[string]bool{}
	pq := &frontier{{node: src}}
	seq := 1

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(frontierItem)
		if settled[cur.node] {
			continue
		}
		settled[cur.node] = true
		if cur.node == target {
			break
		}
		for _, e := range g.EdgesFrom(cur.node) {
			if !traversable(g, e) {
				continue
			}
			nd := cur.dist + e.Weight
			if d, ok := dist[e.ToNodeID]; !ok || nd < d {
				dist[e.ToNodeID] = nd
				prev[e.ToNodeID] = e.ID
				heap.Push(pq, frontierItem{node: e.ToNodeID, dist: nd, seq: seq})
				seq++
			}
		}
	}
	return dist, prev
}

func singleNodePath(id string) topology.Path {
	return topology.Path{Nodes: []string{id}, Edges: []string{}}
}

// ShortestPath returns the minimum-weight path from one node to another.
// The second result is false when either node is unknown or nothing connects them.
func ShortestPath(g *topology.Graph, from, to string) (topology.Path, bool) {
	if !g.HasNode(from) || !g.HasNode(to) {
		return topology.Path{}, false
	}
	if from == to {
		return singleNodePath(from), true
	}
	dist, prev := dijkstra(g, from, to)
	total, ok := dist[to]
	if !ok {
		return topology.Path{}, false
	}

	nodes := []string{to}
	edges := []string{}
	for cur := to; cur != from; {
		eid := prev[cur]
		e, _ := g.Edge(eid)
		edges = append(edges, eid)
		cur = e.FromNodeID
		nodes = append(nodes, cur)
	}
	slices.Reverse(nodes)
	slices.Reverse(edges)
	return topology.Path{Nodes: nodes, Edges: edges, TotalWeight: total}, true
}

// BestPath is the path callers should take. Today it is the shortest path.
func BestPath(g *topology.Graph, from, to string) (topology.Path, bool) {
	return ShortestPath(g, from, to)
}

// AllPaths enumerates simple paths depth-first, stopping after maxPaths results.
// No branch is extended beyond maxDepth edges.
func AllPaths(g *topology.Graph, from, to string, maxPaths, maxDepth int) []topology.Path {
	if maxPaths <= 0 || !g.HasNode(from) || !g.HasNode(to) {
		return nil
	}
	if from == to {
		return []topology.Path{singleNodePath(from)}
	}

	var (
		out    []topology.Path
		nodes  = []string{from}
		edges  []string
		onPath = map[string]bool{from: true}
	)

	var walk func(cur string, weight float64)
	walk = func(cur string, weight float64) {
		if len(edges) >= maxDepth {
			return
		}
		for _, e := range g.EdgesFrom(cur) {
			if len(out) >= maxPaths {
				return
			}
			if !traversable(g, e) || onPath[e.ToNodeID] {
				continue
			}
			w := weight + e.Weight
			nodes = append(nodes, e.ToNodeID)
			edges = append(edges, e.ID)
			if e.ToNodeID == to {
				out = append(out, topology.Path{
					Nodes:       slices.Clone(nodes),
					Edges:       slices.Clone(edges),
					TotalWeight: w,
				})
			} else {
				onPath[e.ToNodeID] = true
				walk(e.ToNodeID, w)
				onPath[e.ToNodeID] = false
			}
			nodes = nodes[:len(nodes)-1]
			edges = edges[:len(edges)-1]
		}
	}
	walk(from, 0)
	return out
}

// PathExists reports whether to is reachable from from over traversable
// edges and active nodes.
func PathExists(g *topology.Graph, from, to string) bool {
	return reachable(g, from, to, func(e *topology.GraphEdge) bool { return traversable(g, e) })
}

// WouldCreateCycle reports whether adding an edge from→to closes a loop. It
// follows every active or degraded edge regardless of node status, matching
// what FindCycles and TopologicalSort see.
func WouldCreateCycle(g *topology.Graph, from, to string) bool {
	if from == to {
		return true
	}
	return reachable(g, to, from, func(e *topology.GraphEdge) bool { return e.Status.IsActive() })
}

func reachable(g *topology.Graph, from, to string, follow func(*topology.GraphEdge) bool) bool {
	if !g.HasNode(from) || !g.HasNode(to) {
		return false
	}
	if from == to {
		return true
	}
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g.EdgesFrom(cur) {
			if !follow(e) || seen[e.ToNodeID] {
				continue
			}
			if e.ToNodeID == to {
				return true
			}
			seen[e.ToNodeID] = true
			queue = append(queue, e.ToNodeID)
		}
	}
	return false
}
