package main

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/meikuraledutech/topology/auth"
	"github.com/meikuraledutech/topology/logger"
	"github.com/meikuraledutech/topology/service"
	"github.com/meikuraledutech/topology/tools"
)

func (c *cli) tokenCmd() *cobra.Command {
	var (
		p   auth.Principal
		ttl time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with the configured jwt_secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if p.Subject == "" {
				return fmt.Errorf("--subject is required")
			}
			token, err := auth.Issue(cfg.JWTSecret, p, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.Subject, "subject", "", "token subject")
	f.StringSliceVar(&p.Topologies, "topology", nil, "topology ids the token may access (* for all)")
	f.StringSliceVar(&p.Roles, "role", nil, "roles, e.g. admin")
	f.DurationVar(&ttl, "ttl", 24*time.Hour, "lifetime; 0 for no expiry")
	return cmd
}

func (c *cli) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the topology tools to an MCP client over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				logger.FromContext(ctx).Info("serving mcp over stdio", "version", version, "auth", svc.AuthEnabled())
				return tools.NewServer(svc, version).Run(ctx, mcp.NewStdioTransport())
			})
		},
	}
}
