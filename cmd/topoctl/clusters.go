package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/meikuraledutech/topology/cluster"
	"github.com/meikuraledutech/topology/service"
)

func (c *cli) clustersCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "clusters", Short: "Discover, form and list clusters"}
	cmd.AddCommand(c.clustersListCmd(), c.clustersDiscoverCmd(), c.clustersFormCmd())
	return cmd
}

func (c *cli) clustersListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list <id>",
		Short: "List clusters of a topology",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				clusters, err := svc.ListClusters(ctx, args[0], !all)
				if err != nil {
					return err
				}
				if c.jsonOutput() {
					return printJSON(cmd, clusters)
				}
				tw := newTable(cmd)
				tw.AppendHeader(table.Row{"ID", "Name", "Leader", "Members", "Purpose", "Active"})
				for _, cl := range clusters {
					tw.AppendRow(table.Row{cl.ID, cl.Name, cl.Leader, strings.Join(cl.Members, ", "), cl.Purpose, cl.IsActive})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include inactive clusters")
	return cmd
}

func (c *cli) clustersDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover <id>",
		Short: "Suggest clusters from connected components",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				suggestions, err := svc.DiscoverClusters(ctx, args[0])
				if err != nil {
					return err
				}
				if c.jsonOutput() {
					return printJSON(cmd, suggestions)
				}
				tw := newTable(cmd)
				tw.AppendHeader(table.Row{"Members", "Purpose", "Cohesion", "Types"})
				for _, s := range suggestions {
					tw.AppendRow(table.Row{
						strings.Join(s.Members, ", "),
						s.SuggestedPurpose,
						fmt.Sprintf("%.3f", s.Cohesion),
						strings.Join(s.NodeTypes, ", "),
					})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func (c *cli) clustersFormCmd() *cobra.Command {
	var (
		name string
		req  cluster.Requirements
	)
	cmd := &cobra.Command{
		Use:   "form <id>",
		Short: "Form a cluster from the best matching active nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := req.Validate(); err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				res, err := svc.CreateCluster(ctx, args[0], req, name)
				if err != nil {
					return err
				}
				if c.jsonOutput() {
					return printJSON(cmd, res)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "cluster %s (%s): leader %s, members %s\n",
					res.Cluster.ID, res.Cluster.Name, res.Cluster.Leader, strings.Join(res.Cluster.Members, ", "))
				fmt.Fprintf(out, "coverage %.0f%%\n", res.Coverage*100)
				for _, w := range res.Warnings {
					fmt.Fprintln(out, "warning:", w)
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "cluster name")
	f.StringSliceVar(&req.Capabilities, "require", nil, "required capabilities")
	f.IntVar(&req.MinNodes, "min", 1, "minimum members")
	f.IntVar(&req.MaxNodes, "max", 0, "maximum members (0 means min)")
	f.StringSliceVar(&req.NodeTypes, "types", nil, "restrict to node types")
	f.StringVar(&req.Purpose, "purpose", "", "cluster purpose")
	return cmd
}
