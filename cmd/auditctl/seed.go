package main

import (
	"context"

	"github.com/spf13/cobra"

	"audittrail/internal/app"
	"audittrail/internal/seeder"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create demo tenants and clients, recorded as the seeder principal",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app.App, _ []string) error {
			sum, err := seeder.New(a.Tenants, a.Clients, a.Logger).SeedAll(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, sum)
		}),
	}
}
