package route

import (
	"log/slog"
	"slices"

	"github.com/meikuraledutech/topology"
	"github.com/meikuraledutech/topology/engine"
	"github.com/meikuraledutech/topology/logger"
)

// Step actions.
const (
	ActionStart         = "start"
	ActionTraverse      = "traverse"
	ActionExecute       = "execute"
	ActionUseCapability = "use_capability"
	ActionArrive        = "arrive"
	ActionAssign        = "assign"
	ActionPartialMatch  = "partial_match"
	ActionVisit         = "visit"
)

// RouteStep is one node of a plan. EdgeID is the edge used to reach it and is
// empty for the first step.
type RouteStep struct {
	NodeID      string `json:"node_id"`
	NodeType    string `json:"node_type"`
	ReferenceID string `json:"reference_id"`
	Action      string `json:"action"`
	EdgeID      string `json:"edge_id,omitempty"`
}

// ExecutionPlan is the answer to a Goal. For workflow goals Path holds the
// breadth-first visitation order and the edges that discovered each node.
type ExecutionPlan struct {
	Goal         GoalSpec        `json:"goal"`
	Steps        []RouteStep     `json:"steps"`
	TotalWeight  float64         `json:"total_weight"`
	Path         topology.Path   `json:"path"`
	Alternatives []topology.Path `json:"alternatives"`
}

// Planner plans goals against a graph snapshot.
type Planner struct {
	MaxAlternatives int
	MaxDepth        int
	Logger          *slog.Logger
}

// New returns a Planner with up to 3 alternatives of at most 10 hops.
func New(logger *slog.Logger) *Planner {
	return &Planner{MaxAlternatives: 3, MaxDepth: 10, Logger: logger}
}

func (p *Planner) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return logger.Discard()
}

// Plan resolves goal against g.
func (p *Planner) Plan(g *topology.Graph, goal Goal) (*ExecutionPlan, error) {
	var (
		plan *ExecutionPlan
		err  error
	)
	switch goal := goal.(type) {
	case ExecuteTask:
		plan, err = p.executeTask(g, goal)
	case ReachCapability:
		plan, err = p.reachCapability(g, goal)
	case ConnectNodes:
		plan, err = p.connectNodes(g, goal)
	case FindAgent:
		plan, err = p.findAgent(g, goal)
	case ExecuteWorkflow:
		plan, err = p.executeWorkflow(g, goal)
	default:
		return nil, topology.Routingf("unsupported goal %T", goal)
	}
	if err != nil {
		p.logger().Debug("plan failed", "goal", goal.Spec().Type, "err", err)
		return nil, err
	}
	p.logger().Debug("plan ready",
		"goal", plan.Goal.Type,
		"steps", len(plan.Steps),
		"weight", plan.TotalWeight,
		"alternatives", len(plan.Alternatives),
	)
	return plan, nil
}

func activeAgents(g *topology.Graph) []string {
	var out []string
	for _, n := range g.Nodes() {
		if n.NodeType == topology.TypeAgent && n.IsActive() {
			out = append(out, n.ID)
		}
	}
	return out
}

// cheapest returns the lowest-weight path from any source to any target.
// Ties keep the first pair in insertion order.
func cheapest(g *topology.Graph, sources, targets []string) (topology.Path, bool) {
	var (
		best  topology.Path
		found bool
	)
	for _, s := range sources {
		for _, t := range targets {
			path, ok := engine.ShortestPath(g, s, t)
			if ok && (!found || path.TotalWeight < best.TotalWeight) {
				best, found = path, true
			}
		}
	}
	return best, found
}

func (p *Planner) executeTask(g *topology.Graph, goal ExecuteTask) (*ExecutionPlan, error) {
	if !g.HasNode(goal.TaskID) {
		return nil, &topology.NodeNotFoundError{ID: goal.TaskID}
	}
	agents := activeAgents(g)
	if len(agents) == 0 {
		return nil, topology.Routingf("no active agents available for task %s", goal.TaskID)
	}
	path, ok := cheapest(g, agents, []string{goal.TaskID})
	if !ok {
		return nil, &topology.NoPathError{From: "any agent", To: goal.TaskID}
	}
	return p.pathPlan(g, goal.Spec(), path, ActionExecute), nil
}

func (p *Planner) reachCapability(g *topology.Graph, goal ReachCapability) (*ExecutionPlan, error) {
	var targets []string
	for _, n := range g.Nodes() {
		if n.IsActive() && n.HasCapability(goal.Capability) {
			targets = append(targets, n.ID)
		}
	}
	if len(targets) == 0 {
		return nil, topology.Routingf("no active node provides capability %q", goal.Capability)
	}
	agents := activeAgents(g)
	if len(agents) == 0 {
		return nil, topology.Routingf("no active agents available to reach capability %q", goal.Capability)
	}
	path, ok := cheapest(g, agents, targets)
	if !ok {
		return nil, &topology.NoPathError{From: "any agent", To: "capability " + goal.Capability}
	}
	return p.pathPlan(g, goal.Spec(), path, ActionUseCapability), nil
}

func (p *Planner) connectNodes(g *topology.Graph, goal ConnectNodes) (*ExecutionPlan, error) {
	for _, id := range []string{goal.From, goal.To} {
		if !g.HasNode(id) {
			return nil, &topology.NodeNotFoundError{ID: id}
		}
	}
	path, ok := engine.ShortestPath(g, goal.From, goal.To)
	if !ok {
		return nil, &topology.NoPathError{From: goal.From, To: goal.To}
	}
	return p.pathPlan(g, goal.Spec(), path, ActionArrive), nil
}

func (p *Planner) findAgent(g *topology.Graph, goal FindAgent) (*ExecutionPlan, error) {
	var (
		full, partial *topology.GraphNode
		partialHits   int
	)
	for _, n := range g.Nodes() {
		if n.NodeType != topology.TypeAgent || !n.IsActive() {
			continue
		}
		hits := 0
		for _, c := range goal.Capabilities {
			if n.HasCapability(c) {
				hits++
			}
		}
		switch {
		case hits == len(goal.Capabilities):
			if full == nil || n.Weight > full.Weight {
				full = n
			}
		case hits > 0:
			if partial == nil || hits > partialHits || (hits == partialHits && n.Weight > partial.Weight) {
				partial, partialHits = n, hits
			}
		}
	}

	pick, action := full, ActionAssign
	if pick == nil {
		pick, action = partial, ActionPartialMatch
	}
	if pick == nil {
		return nil, topology.Routingf("no active agent matches any of %v", goal.Capabilities)
	}
	return &ExecutionPlan{
		Goal: goal.Spec(),
		Steps: []RouteStep{{
			NodeID:      pick.ID,
			NodeType:    pick.NodeType,
			ReferenceID: pick.ReferenceID,
			Action:      action,
		}},
		Path:         topology.Path{Nodes: []string{pick.ID}, Edges: []string{}},
		Alternatives: []topology.Path{},
	}, nil
}

func (p *Planner) executeWorkflow(g *topology.Graph, goal ExecuteWorkflow) (*ExecutionPlan, error) {
	root, ok := g.Node(goal.WorkflowID)
	if !ok {
		return nil, topology.Routingf("workflow %s not found", goal.WorkflowID)
	}

	plan := &ExecutionPlan{
		Goal:         goal.Spec(),
		Steps:        []RouteStep{step(root, ActionStart, "")},
		Path:         topology.Path{Nodes: []string{root.ID}, Edges: []string{}},
		Alternatives: []topology.Path{},
	}
	seen := map[string]bool{root.ID: true}
	for head := 0; head < len(plan.Path.Nodes); head++ {
		for _, e := range g.EdgesFrom(plan.Path.Nodes[head]) {
			if !e.Status.IsActive() || seen[e.ToNodeID] {
				continue
			}
			seen[e.ToNodeID] = true
			n, _ := g.Node(e.ToNodeID)
			plan.Steps = append(plan.Steps, step(n, ActionVisit, e.ID))
			plan.Path.Nodes = append(plan.Path.Nodes, n.ID)
			plan.Path.Edges = append(plan.Path.Edges, e.ID)
			plan.Path.TotalWeight += e.Weight
		}
	}
	plan.TotalWeight = plan.Path.TotalWeight
	return plan, nil
}

func step(n *topology.GraphNode, action, edgeID string) RouteStep {
	return RouteStep{
		NodeID:      n.ID,
		NodeType:    n.NodeType,
		ReferenceID: n.ReferenceID,
		Action:      action,
		EdgeID:      edgeID,
	}
}

// pathPlan turns a path into steps and attaches alternatives.
func (p *Planner) pathPlan(g *topology.Graph, spec GoalSpec, path topology.Path, final string) *ExecutionPlan {
	steps := make([]RouteStep, 0, len(path.Nodes))
	for i, id := range path.Nodes {
		n, _ := g.Node(id)
		action, edgeID := ActionTraverse, ""
		if i > 0 {
			edgeID = path.Edges[i-1]
		}
		switch {
		case i == len(path.Nodes)-1:
			action = final
		case i == 0:
			action = ActionStart
		}
		steps = append(steps, step(n, action, edgeID))
	}
	return &ExecutionPlan{
		Goal:         spec,
		Steps:        steps,
		TotalWeight:  path.TotalWeight,
		Path:         path,
		Alternatives: p.alternatives(g, path),
	}
}

// alternatives returns up to MaxAlternatives other simple paths between the
// endpoints of chosen, cheapest first.
func (p *Planner) alternatives(g *topology.Graph, chosen topology.Path) []topology.Path {
	out := []topology.Path{}
	if chosen.Len() == 0 || p.MaxAlternatives <= 0 {
		return out
	}
	from, to := chosen.Nodes[0], chosen.Nodes[len(chosen.Nodes)-1]
	for _, candidate := range engine.AllPaths(g, from, to, p.MaxAlternatives+1, p.MaxDepth) {
		if !candidate.Equal(chosen) {
			out = append(out, candidate)
		}
	}
	slices.SortStableFunc(out, func(a, b topology.Path) int {
		switch {
		case a.TotalWeight < b.TotalWeight:
			return -1
		case a.TotalWeight > b.TotalWeight:
			return 1
		}
		return 0
	})
	if len(out) > p.MaxAlternatives {
		out = out[:p.MaxAlternatives]
	}
	return out
}

// Reroute recomputes a plan's route as if failedNodeID had failed. The input
// graph is not modified.
func (p *Planner) Reroute(g *topology.Graph, plan *ExecutionPlan, failedNodeID string) (*ExecutionPlan, error) {
	if plan == nil || len(plan.Path.Nodes) == 0 {
		return nil, topology.Routingf("plan has no route to reroute")
	}
	if plan.Goal.Type == GoalExecuteWorkflow {
		return nil, topology.Routingf("workflow plans are traversal orders and cannot be rerouted")
	}
	if !g.HasNode(failedNodeID) {
		return nil, &topology.NodeNotFoundError{ID: failedNodeID}
	}
	from, to := plan.Path.Nodes[0], plan.Path.Nodes[len(plan.Path.Nodes)-1]
	if failedNodeID == from || failedNodeID == to {
		return nil, topology.Routingf("failed node %s is an endpoint of the route", failedNodeID)
	}

	sim := g.Clone()
	if err := sim.SetNodeStatus(failedNodeID, topology.NodeFailed); err != nil {
		return nil, err
	}
	path, ok := engine.ShortestPath(sim, from, to)
	if !ok {
		return nil, &topology.NoPathError{From: from, To: to}
	}
	final := ActionArrive
	if len(plan.Steps) > 0 {
		final = plan.Steps[len(plan.Steps)-1].Action
	}
	rerouted := p.pathPlan(sim, plan.Goal, path, final)
	p.logger().Info("route rerouted",
		"failed", failedNodeID,
		"from", from,
		"to", to,
		"weight", rerouted.TotalWeight,
	)
	return rerouted, nil
}
