package main

import (
	"context"

	"github.com/spf13/cobra"

	"audittrail/internal/app"
	audithandler "audittrail/internal/audit/handler"
	audit "audittrail/pkg/platform/audit"
)

func trailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trail <auditable-type> <auditable-id>",
		Short: "Print the audit trail of one entity, oldest first",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app.App, args []string) error {
			records, err := a.Registry.AuditRecords(ctx, audit.Ref{Type: args[0], ID: args[1]})
			if err != nil {
				return err
			}
			return printJSON(cmd, audithandler.RecordListResponse{Records: audithandler.ToRecordResponses(records)})
		}),
	}
}

func recentCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Print the newest audit records across all entities",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app.App, _ []string) error {
			records, err := a.Audit.ListRecent(ctx, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, audithandler.RecordListResponse{Records: audithandler.ToRecordResponses(records)})
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of records")
	return cmd
}
