package patterns

import (
	"fmt"

	"github.com/meikuraledutech/topology"
	"github.com/meikuraledutech/topology/engine"
)

// Kind names a structural shape around a node.
type Kind string

const (
	KindHub    Kind = "hub"
	KindStar   Kind = "star"
	KindBridge Kind = "bridge"
	KindFork   Kind = "fork"
	KindJoin   Kind = "join"
)

// Pattern is one detected shape. Frequency is the measure that triggered it:
// degree for hub, star, fork and join; extra components for bridge.
type Pattern struct {
	Kind        Kind   `json:"kind"`
	NodeID      string `json:"node_id"`
	Frequency   int    `json:"frequency"`
	Description string `json:"description"`
}

// DetectPatterns looks for hubs, stars, bridges, forks and joins. A node may
// match several shapes.
//
// Bridges are found by removing each node from a clone and recounting
// components, which is O(V·(V+E)).
func (d *Detector) DetectPatterns(g *topology.Graph) []Pattern {
	baseComponents := len(engine.ConnectedComponents(g))
	out := []Pattern{}

	for _, n := range g.Nodes() {
		in, outDeg := g.InDegree(n.ID), g.OutDegree(n.ID)
		total := in + outDeg

		if total >= d.HubThreshold {
			out = append(out, Pattern{
				Kind:        KindHub,
				NodeID:      n.ID,
				Frequency:   total,
				Description: fmt.Sprintf("%s has %d connections", n.ID, total),
			})
		}
		if outDeg >= d.HubThreshold && in <= 1 {
			out = append(out, Pattern{
				Kind:        KindStar,
				NodeID:      n.ID,
				Frequency:   outDeg,
				Description: fmt.Sprintf("%s feeds %d dependents", n.ID, outDeg),
			})
		}
		if inc := componentIncrease(g, n.ID, baseComponents); inc > 0 {
			out = append(out, Pattern{
				Kind:        KindBridge,
				NodeID:      n.ID,
				Frequency:   inc,
				Description: fmt.Sprintf("removing %s splits the graph into %d more components", n.ID, inc),
			})
		}
		if in == 1 && outDeg >= 3 {
			out = append(out, Pattern{
				Kind:        KindFork,
				NodeID:      n.ID,
				Frequency:   outDeg,
				Description: fmt.Sprintf("%s fans out to %d nodes", n.ID, outDeg),
			})
		}
		if in >= 3 && outDeg == 1 {
			out = append(out, Pattern{
				Kind:        KindJoin,
				NodeID:      n.ID,
				Frequency:   in,
				Description: fmt.Sprintf("%s merges %d inputs", n.ID, in),
			})
		}
	}
	d.logger().Debug("patterns detected", "count", len(out))
	return out
}

func componentIncrease(g *topology.Graph, id string, base int) int {
	sim := g.Clone()
	if err := sim.RemoveNode(id); err != nil {
		return 0
	}
	return len(engine.ConnectedComponents(sim)) - base
}

// DegradedPath is an agent-to-task route that crosses degraded edges.
type DegradedPath struct {
	AgentID       string        `json:"agent_id"`
	TaskID        string        `json:"task_id"`
	Path          topology.Path `json:"path"`
	DegradedEdges []string      `json:"degraded_edges"`
}

// DetectDegradedPaths computes the shortest route for every active agent and
// active task pair and reports the routes that traverse degraded edges.
func (d *Detector) DetectDegradedPaths(g *topology.Graph) []DegradedPath {
	degraded := map[string]bool{}
	for _, e := range g.Edges() {
		if e.Status == topology.EdgeDegraded {
			degraded[e.ID] = true
		}
	}
	out := []DegradedPath{}
	if len(degraded) == 0 {
		return out
	}

	var agents, tasks []string
	for _, n := range g.Nodes() {
		if !n.IsActive() {
			continue
		}
		switch n.NodeType {
		case topology.TypeAgent:
			agents = append(agents, n.ID)
		case topology.TypeTask:
			tasks = append(tasks, n.ID)
		}
	}

	for _, a := range agents {
		for _, t := range tasks {
			p, ok := engine.ShortestPath(g, a, t)
			if !ok {
				continue
			}
			var hit []string
			for _, eid := range p.Edges {
				if degraded[eid] {
					hit = append(hit, eid)
				}
			}
			if len(hit) > 0 {
				out = append(out, DegradedPath{AgentID: a, TaskID: t, Path: p, DegradedEdges: hit})
			}
		}
	}
	d.logger().Debug("degraded paths detected", "degraded_edges", len(degraded), "paths", len(out))
	return out
}
