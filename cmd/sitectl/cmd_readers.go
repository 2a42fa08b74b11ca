package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/entitlement"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/store"
)

type readerView struct {
	Email     string `yaml:"email" json:"email"`
	Created   *bool  `yaml:"created,omitempty" json:"created,omitempty"`
	HasAccess *bool  `yaml:"has_access,omitempty" json:"hasAccess,omitempty"`
}

func (c *cli) readersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readers",
		Short: "Manage the reader allow-list",
	}

	add := &cobra.Command{
		Use:   "add EMAIL...",
		Short: "Grant access to one or more emails",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				out := make([]readerView, 0, len(args))
				for _, raw := range args {
					email := entitlement.Normalize(raw)
					if email == "" {
						return fmt.Errorf("empty email %q", raw)
					}
					created, err := st.Readers().Add(ctx, email)
					if err != nil {
						return fmt.Errorf("add %s: %w", email, err)
					}
					out = append(out, readerView{Email: email, Created: &created})
				}
				return c.print(cmd.OutOrStdout(), out)
			})
		},
	}

	var collapsePlus bool
	check := &cobra.Command{
		Use:   "check EMAIL",
		Short: "Report whether an email has reader access",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				checker := entitlement.NewChecker(st.Readers(), collapsePlus)
				ok, err := checker.HasAccess(ctx, args[0])
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), readerView{Email: checker.Key(args[0]), HasAccess: &ok})
			})
		},
	}
	check.Flags().BoolVar(&collapsePlus, "collapse-plus", false, "ignore +tag suffixes in the local part")

	cmd.AddCommand(add, check)
	return cmd
}
