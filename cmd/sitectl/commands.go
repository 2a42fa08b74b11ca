package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/store"
)

// cli carries the persistent flags shared by every subcommand.
type cli struct {
	logger      *slog.Logger
	databaseURL string
	sqlitePath  string
	output      string
	logSQL      bool
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	c := &cli{logger: logger}

	root := &cobra.Command{
		Use:           "sitectl",
		Short:         "Operate the site database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch c.output {
			case "yaml", "json":
				return nil
			}
			return fmt.Errorf("unknown output format %q", c.output)
		},
	}
	root.PersistentFlags().StringVar(&c.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "postgres connection string")
	root.PersistentFlags().StringVar(&c.sqlitePath, "sqlite", "", "use a local sqlite file instead of postgres")
	root.PersistentFlags().StringVarP(&c.output, "output", "o", "yaml", "output format: yaml or json")
	root.PersistentFlags().BoolVar(&c.logSQL, "log-sql", false, "log every SQL statement")

	root.AddCommand(
		c.migrateCmd(),
		c.modeCmd(),
		c.readersCmd(),
		c.giftsCmd(),
	)
	return root
}

func (c *cli) openStore(ctx context.Context) (*store.Store, error) {
	opts := store.Options{LogSQL: c.logSQL}
	if c.sqlitePath != "" {
		return store.OpenSQLite(ctx, c.sqlitePath, opts)
	}
	if c.databaseURL == "" {
		return nil, errors.New("--database-url or DATABASE_URL is required")
	}
	return store.OpenPostgres(ctx, c.databaseURL, opts)
}

// withStore opens the store for one command and closes it afterwards.
func (c *cli) withStore(cmd *cobra.Command, fn func(ctx context.Context, st *store.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := c.openStore(ctx)
	if err != nil {
		c.logger.Error("open store", "error", err)
		return err
	}
	defer st.Close()
	if err := fn(ctx, st); err != nil {
		c.logger.Error("command failed", "command", cmd.CommandPath(), "error", err)
		return err
	}
	return nil
}

func (c *cli) print(w io.Writer, v any) error {
	if c.output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				c.logger.Info("schema is up to date")
				return c.print(cmd.OutOrStdout(), map[string]bool{"migrated": true})
			})
		},
	}
}
