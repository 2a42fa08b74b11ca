package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/service"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/store"
)

type giftView struct {
	ID        string `yaml:"id" json:"id"`
	Token     string `yaml:"token" json:"token"`
	ExpiresAt string `yaml:"expires_at,omitempty" json:"expiresAt,omitempty"`
}

func (c *cli) giftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gifts",
		Short: "Manage one-time gift drops",
	}

	var (
		id        string
		expiresIn time.Duration
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an unrevealed gift and print its secret token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				gift, err := service.NewGifts(st, nil).Create(ctx, id, expiresIn)
				if err != nil {
					return err
				}
				v := giftView{ID: gift.ID, Token: gift.SecretToken}
				if gift.ExpiresAt != nil {
					v.ExpiresAt = gift.ExpiresAt.UTC().Format(time.RFC3339)
				}
				c.logger.Info("gift created", "gift_id", gift.ID)
				return c.print(cmd.OutOrStdout(), v)
			})
		},
	}
	create.Flags().StringVar(&id, "id", "", "gift id (default: random uuid)")
	create.Flags().DurationVar(&expiresIn, "expires-in", 0, "time until the gift expires (0 never expires)")

	cmd.AddCommand(create)
	return cmd
}
