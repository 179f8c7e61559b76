// Command auditctl operates the audittrail service from a shell: schema
// migrations, admin tokens, tenant maintenance and audit trail queries.
// Mutations are attributed to the principal given by --actor and --ip.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"audittrail/internal/app"
	"audittrail/internal/platform/config"
	"audittrail/internal/platform/logger"
	"audittrail/pkg/principal"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "auditctl",
		Short:         "Operate the audittrail admin service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("actor", "", "principal ID recorded on mutations")
	root.PersistentFlags().String("ip", "", "principal IP recorded on mutations")

	root.AddCommand(
		migrateCmd(),
		tokenCmd(),
		tenantCmd(),
		trailCmd(),
		recentCmd(),
		seedCmd(),
	)
	return root
}

// principalContext installs the --actor/--ip principal. An --ip alone still
// reaches validation rules that require an IP; without --actor no record is
// attributed and the configured no-principal policy applies.
func principalContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	actor, _ := cmd.Flags().GetString("actor")
	ip, _ := cmd.Flags().GetString("ip")
	if actor == "" && ip == "" {
		return ctx
	}
	return principal.Set(ctx, principal.Principal{ID: actor, IP: ip})
}

// openApp wires the application against the configured database. Commands
// that change or read stored state are meaningless on the in-memory backend.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}
	return app.New(cmd.Context(), cfg, logger.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel))
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
