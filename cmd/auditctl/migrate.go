package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"audittrail/internal/platform/config"
	"audittrail/internal/platform/database/migrate"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect schema migrations",
	}
	cmd.AddCommand(
		applyCmd(migrate.Up, "Apply all pending migrations"),
		applyCmd(migrate.Down, "Roll back every applied migration"),
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				dsn, err := databaseURL()
				if err != nil {
					return err
				}
				version, dirty, err := migrate.Version(dsn)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"version": version, "dirty": dirty})
			},
		},
	)
	return cmd
}

func applyCmd(dir migrate.Direction, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(dir),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dsn, err := databaseURL()
			if err != nil {
				return err
			}
			if err := migrate.Run(dsn, dir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", dir)
			return nil
		},
	}
}

func databaseURL() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	if cfg.DatabaseURL == "" {
		return "", fmt.Errorf("DATABASE_URL must be set")
	}
	return cfg.DatabaseURL, nil
}
