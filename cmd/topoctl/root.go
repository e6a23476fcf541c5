package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meikuraledutech/topology/backend"
	"github.com/meikuraledutech/topology/config"
	"github.com/meikuraledutech/topology/logger"
	"github.com/meikuraledutech/topology/service"
)

// cli holds state shared by every subcommand. Each root command gets its own
// viper instance so tests do not leak flags into one another.
type cli struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	root := &cobra.Command{
		Use:           "topoctl",
		Short:         "Inspect, analyse and reshape entity topologies",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.cfgFile, "config", "c", "", "config file (yaml, json or toml)")
	flags.String("database-url", "", "PostgreSQL URL; the SQLite workspace is used when empty")
	flags.String("sqlite-path", ".topology/topology.db", "SQLite workspace file")
	flags.String("log-level", "warn", "debug, info, warn or error")
	flags.Bool("json", false, "output JSON")
	_ = c.v.BindPFlag("database_url", flags.Lookup("database-url"))
	_ = c.v.BindPFlag("sqlite_path", flags.Lookup("sqlite-path"))
	_ = c.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = c.v.BindPFlag("json", flags.Lookup("json"))

	root.AddCommand(
		c.schemaCmd(),
		c.listCmd(),
		c.importCmd(),
		c.exportCmd(),
		c.analyzeCmd(),
		c.pathCmd(),
		c.planCmd(),
		c.clustersCmd(),
		c.tokenCmd(),
		c.mcpCmd(),
	)
	return root
}

func (c *cli) config() (*config.Config, error) {
	return config.Load(c.v, c.cfgFile)
}

// withService opens the configured store, makes sure the schema exists and
// runs fn against a Service.
func (c *cli) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *service.Service) error) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	ctx := logger.WithLogger(cmd.Context(), log)

	store, closeStore, err := backend.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	if err := store.CreateSchema(ctx); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return fn(ctx, service.New(store, service.OptionsFromConfig(cfg, log)))
}

func (c *cli) jsonOutput() bool {
	return c.v.GetBool("json")
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) schemaCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "schema", Short: "Manage the storage schema"}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "drop",
		Short: "Drop every topology table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				if err := svc.Store().DropSchema(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema dropped")
				return nil
			})
		},
	})
	return cmd
}
