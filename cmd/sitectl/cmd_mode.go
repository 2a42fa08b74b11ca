package main

import (
	"context"
	"os/user"
	"time"

	"github.com/spf13/cobra"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/domain"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/service"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/store"
)

type modeView struct {
	Mode      domain.Mode `yaml:"mode" json:"mode"`
	UpdatedAt string      `yaml:"updated_at,omitempty" json:"updatedAt,omitempty"`
	UpdatedBy string      `yaml:"updated_by,omitempty" json:"updatedBy,omitempty"`
}

func toModeView(s service.SystemStatus) modeView {
	v := modeView{Mode: s.Mode, UpdatedBy: s.UpdatedBy}
	if s.UpdatedAt != nil {
		v.UpdatedAt = s.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return v
}

func (c *cli) modeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mode",
		Short: "Show or switch the site-wide write mode",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Print the current mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				status, err := service.NewSystem(st, nil).Status(ctx)
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), toModeView(status))
			})
		},
	}

	var by string
	set := &cobra.Command{
		Use:       "set SAFE|READ_ONLY",
		Short:     "Switch the mode",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(domain.ModeSafe), string(domain.ModeReadOnly)},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := domain.ParseMode(args[0])
			if err != nil {
				return err
			}
			if by == "" {
				by = operatorName()
			}
			return c.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				status, err := service.NewSystem(st, nil).SetMode(ctx, mode, by)
				if err != nil {
					return err
				}
				c.logger.Info("system mode changed", "mode", status.Mode, "by", status.UpdatedBy)
				return c.print(cmd.OutOrStdout(), toModeView(status))
			})
		},
	}
	set.Flags().StringVar(&by, "by", "", "operator recorded as updated_by (default: current OS user)")

	cmd.AddCommand(get, set)
	return cmd
}

func operatorName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return "sitectl:" + u.Username
	}
	return "sitectl"
}
