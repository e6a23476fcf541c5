package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/meikuraledutech/topology/patterns"
	"github.com/meikuraledutech/topology/route"
	"github.com/meikuraledutech/topology/service"
	"github.com/meikuraledutech/topology/snapshot"
)

func newTable(cmd *cobra.Command) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.SetStyle(table.StyleLight)
	return tw
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored topologies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				ids, err := svc.ListTopologies(ctx)
				if err != nil {
					return err
				}
				if c.jsonOutput() {
					return printJSON(cmd, ids)
				}
				tw := newTable(cmd)
				tw.AppendHeader(table.Row{"ID", "Nodes", "Edges", "Clusters", "Health"})
				for _, id := range ids {
					sum, err := svc.GetTopologySummary(ctx, id)
					if err != nil {
						return err
					}
					tw.AppendRow(table.Row{id, sum.NodeCount, sum.EdgeCount, sum.ActiveClusters, fmt.Sprintf("%.2f", sum.HealthScore)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func (c *cli) importCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load a YAML or JSON topology document, replacing any topology with the same id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := snapshot.ReadFile(args[0])
			if err != nil {
				return err
			}
			if id != "" {
				t.ID = id
			}
			return c.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				if err := svc.ImportTopology(ctx, t); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s: %d nodes, %d edges, %d clusters\n",
					t.ID, t.Graph.NodeCount(), t.Graph.EdgeCount(), len(t.Clusters))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "override the document id")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a topology as a YAML document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				t, err := svc.GetTopology(ctx, args[0])
				if err != nil {
					return err
				}
				if c.jsonOutput() {
					return printJSON(cmd, snapshot.FromTopology(t))
				}
				data, err := snapshot.Encode(t)
				if err != nil {
					return err
				}
				if output == "" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				return os.WriteFile(output, data, 0o644)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func (c *cli) analyzeCmd() *cobra.Command {
	var required []string
	cmd := &cobra.Command{
		Use:   "analyze <id>",
		Short: "Detect bottlenecks, holes, shapes and cycles and score topology health",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				report, err := svc.DetectIssues(ctx, args[0], required)
				if err != nil {
					return err
				}
				if c.jsonOutput() {
					return printJSON(cmd, report)
				}
				printReport(cmd, report)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&required, "require", nil, "capabilities that must be provided")
	return cmd
}

func printReport(cmd *cobra.Command, r *patterns.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Health: %.2f | Components: %d | Diameter: %.2f | Avg path: %.2f\n",
		r.HealthScore, r.ComponentCount, r.Diameter, r.AveragePathLength)

	tw := newTable(cmd)
	tw.AppendHeader(table.Row{"Finding", "Subject", "Severity", "Detail"})
	for _, b := range r.Bottlenecks {
		tw.AppendRow(table.Row{"bottleneck", b.NodeID, b.Severity, fmt.Sprintf("in %d / out %d", b.InDegree, b.OutDegree)})
	}
	for _, h := range r.Holes {
		tw.AppendRow(table.Row{"capability hole", h.Capability, h.Severity, h.Description})
	}
	for _, p := range r.Patterns {
		tw.AppendRow(table.Row{string(p.Kind), p.NodeID, "", p.Description})
	}
	for _, d := range r.DegradedPaths {
		tw.AppendRow(table.Row{"degraded path", d.AgentID + " -> " + d.TaskID, "", strings.Join(d.DegradedEdges, ", ")})
	}
	for _, id := range r.Orphans {
		tw.AppendRow(table.Row{"orphan", id, "", ""})
	}
	for _, id := range r.DeadEnds {
		tw.AppendRow(table.Row{"dead end", id, "", ""})
	}
	for _, cycle := range r.Cycles {
		tw.AppendRow(table.Row{"cycle", strings.Join(cycle, " -> "), "", ""})
	}
	tw.Render()
}

func (c *cli) pathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path <id> <from> <to>",
		Short: "Cheapest active route between two nodes, with alternatives",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				res, err := svc.FindPath(ctx, args[0], args[1], args[2])
				if err != nil {
					return err
				}
				if c.jsonOutput() {
					return printJSON(cmd, res)
				}
				tw := newTable(cmd)
				tw.AppendHeader(table.Row{"#", "Route", "Weight"})
				tw.AppendRow(table.Row{"best", strings.Join(res.Path.Nodes, " -> "), res.Path.TotalWeight})
				for i, alt := range res.Alternatives {
					tw.AppendRow(table.Row{i + 1, strings.Join(alt.Nodes, " -> "), alt.TotalWeight})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func (c *cli) planCmd() *cobra.Command {
	var spec route.GoalSpec
	cmd := &cobra.Command{
		Use:   "plan <id>",
		Short: "Plan an execution route for a goal",
		Example: `  topoctl plan ops --type execute_task --task t1
  topoctl plan ops --type find_agent --capabilities compute,gpu`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goal, err := spec.Goal()
			if err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				plan, err := svc.PlanRoute(ctx, args[0], goal)
				if err != nil {
					return err
				}
				if c.jsonOutput() {
					return printJSON(cmd, plan)
				}
				tw := newTable(cmd)
				tw.AppendHeader(table.Row{"Step", "Node", "Type", "Action", "Via"})
				for i, s := range plan.Steps {
					tw.AppendRow(table.Row{i + 1, s.NodeID, s.NodeType, s.Action, s.EdgeID})
				}
				tw.AppendFooter(table.Row{"", "", "", "weight", plan.TotalWeight})
				tw.Render()
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&spec.Type, "type", route.GoalExecuteTask, "execute_task, reach_capability, connect_nodes, find_agent or execute_workflow")
	f.StringVar(&spec.TaskID, "task", "", "task node for execute_task")
	f.StringVar(&spec.Capability, "capability", "", "capability for reach_capability")
	f.StringVar(&spec.From, "from", "", "start node for connect_nodes")
	f.StringVar(&spec.To, "to", "", "end node for connect_nodes")
	f.StringSliceVar(&spec.Capabilities, "capabilities", nil, "capabilities for find_agent")
	f.StringVar(&spec.WorkflowID, "workflow", "", "workflow node for execute_workflow")
	return cmd
}
