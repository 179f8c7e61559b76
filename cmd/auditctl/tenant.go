package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"audittrail/internal/app"
	"audittrail/internal/tenant/models"
	id "audittrail/pkg/domain"
)

type tenantOutput struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Status models.TenantStatus `json:"status"`
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Create and maintain tenants; every change is audited",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create a tenant",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app.App, args []string) error {
				t, err := a.Tenants.CreateTenant(ctx, args[0])
				if err != nil {
					return err
				}
				return printTenant(cmd, t)
			}),
		},
		&cobra.Command{
			Use:   "rename <id> <name>",
			Short: "Rename a tenant",
			Args:  cobra.ExactArgs(2),
			RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app.App, args []string) error {
				tenantID, err := parseTenantID(args[0])
				if err != nil {
					return err
				}
				t, err := a.Tenants.RenameTenant(ctx, tenantID, args[1])
				if err != nil {
					return err
				}
				return printTenant(cmd, t)
			}),
		},
		transitionCmd("deactivate", "Deactivate a tenant", func(a *app.App) func(context.Context, id.TenantID) (*models.Tenant, error) {
			return a.Tenants.DeactivateTenant
		}),
		transitionCmd("reactivate", "Reactivate a tenant", func(a *app.App) func(context.Context, id.TenantID) (*models.Tenant, error) {
			return a.Tenants.ReactivateTenant
		}),
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a tenant and its clients",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app.App, args []string) error {
				tenantID, err := parseTenantID(args[0])
				if err != nil {
					return err
				}
				if err := a.Tenants.DeleteTenant(ctx, tenantID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "tenant %s deleted\n", tenantID)
				return nil
			}),
		},
	)
	return cmd
}

func transitionCmd(name, short string, pick func(*app.App) func(context.Context, id.TenantID) (*models.Tenant, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app.App, args []string) error {
			tenantID, err := parseTenantID(args[0])
			if err != nil {
				return err
			}
			t, err := pick(a)(ctx, tenantID)
			if err != nil {
				return err
			}
			return printTenant(cmd, t)
		}),
	}
}

// withApp opens the app for one command and runs fn with the --actor principal installed.
func withApp(fn func(ctx context.Context, cmd *cobra.Command, a *app.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck // nothing left to report on exit
		return fn(principalContext(cmd), cmd, a, args)
	}
}

func parseTenantID(raw string) (id.TenantID, error) {
	tenantID, err := id.ParseTenantID(raw)
	if err != nil {
		return id.TenantID{}, fmt.Errorf("invalid tenant id %q", raw)
	}
	return tenantID, nil
}

func printTenant(cmd *cobra.Command, t *models.Tenant) error {
	return printJSON(cmd, tenantOutput{ID: t.ID.String(), Name: t.Name, Status: t.Status})
}
