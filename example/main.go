package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/meikuraledutech/topology"
	"github.com/meikuraledutech/topology/cluster"
	"github.com/meikuraledutech/topology/engine"
	"github.com/meikuraledutech/topology/logger"
	"github.com/meikuraledutech/topology/patterns"
	"github.com/meikuraledutech/topology/route"
)

func main() {
	logg := logger.New("info", "text", os.Stderr)

	// ── Build a topology in memory ────────────────────────────────────
	t := topology.NewProjectTopology("delivery")
	for _, n := range []topology.GraphNode{
		topology.NewNode("planner", topology.TypeAgent, "agent-planner", "planning"),
		topology.NewNode("coder", topology.TypeAgent, "agent-coder", "go", "sql"),
		topology.NewNode("reviewer", topology.TypeAgent, "agent-reviewer", "review"),
		topology.NewNode("db", topology.TypeResource, "postgres-main", "sql"),
		topology.NewNode("ship", topology.TypeWorkflow, "wf-ship"),
		topology.NewNode("build", topology.TypeTask, "task-build"),
		topology.NewNode("migrate", topology.TypeTask, "task-migrate"),
		topology.NewNode("release", topology.TypeTask, "task-release"),
	} {
		if _, err := t.AddNode(n); err != nil {
			log.Fatalf("add node: %v", err)
		}
	}
	edges := []topology.GraphEdge{
		topology.NewEdge("", "planner", "coder", topology.EdgeAssignedTo),
		topology.NewEdge("", "coder", "build", topology.EdgeCanExecute),
		topology.NewEdge("", "coder", "db", topology.EdgeCanExecute),
		topology.NewEdge("", "db", "migrate", topology.EdgeCanExecute),
		topology.NewEdge("", "reviewer", "release", topology.EdgeCanExecute),
		topology.NewEdge("", "ship", "build", topology.EdgeDependsOn),
		topology.NewEdge("", "ship", "migrate", topology.EdgeDependsOn),
		topology.NewEdge("", "build", "release", topology.EdgeDependsOn),
		topology.NewEdge("", "migrate", "release", topology.EdgeDependsOn),
	}
	for _, e := range edges {
		if _, err := t.AddEdge(e); err != nil {
			log.Fatalf("add edge: %v", err)
		}
	}
	fmt.Printf("topology %s: %d nodes, %d edges\n", t.ID, t.Graph.NodeCount(), t.Graph.EdgeCount())

	// ── Structure ─────────────────────────────────────────────────────
	order, acyclic := engine.TopologicalSort(t.Graph)
	fmt.Printf("\nacyclic: %v, order: %v\n", acyclic, order)
	fmt.Printf("components: %v\n", engine.ConnectedComponents(t.Graph))

	// ── Pattern analysis ──────────────────────────────────────────────
	detector := patterns.New(patterns.DefaultConfig())
	detector.Logger = logg
	report := detector.Analyze(t.Graph, []string{"go", "sql", "review", "security"})
	fmt.Println("\nanalysis:")
	printJSON(report)

	// ── Clusters ──────────────────────────────────────────────────────
	manager := cluster.New(logg)
	formed, err := manager.Form(t, cluster.Requirements{
		Capabilities: []string{"go", "review"},
		MinNodes:     2,
		NodeTypes:    []string{topology.TypeAgent},
	}, "delivery-crew")
	if err != nil {
		log.Fatalf("form cluster: %v", err)
	}
	fmt.Println("\ncluster formed:")
	printJSON(formed)

	// ── Routing and reroute ───────────────────────────────────────────
	planner := route.New(logg)
	plan, err := planner.Plan(t.Graph, route.ExecuteTask{TaskID: "migrate"})
	if err != nil {
		log.Fatalf("plan: %v", err)
	}
	fmt.Println("\nplan for task-migrate:")
	printJSON(plan.Steps)

	if _, err := planner.Reroute(t.Graph, plan, "db"); err != nil {
		fmt.Printf("\nreroute around db: %v\n", err)
	}

	workflow, err := planner.Plan(t.Graph, route.ExecuteWorkflow{WorkflowID: "ship"})
	if err != nil {
		log.Fatalf("workflow: %v", err)
	}
	fmt.Printf("\nworkflow ship visits: %v\n", workflow.Path.Nodes)
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
