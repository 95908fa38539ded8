package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"equipcat/internal/config"
	"equipcat/internal/store"
)

func newMigrateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run or inspect database schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}

			if dryRun {
				st, err := store.OpenNoMigrate(cfg.DBPath)
				if err != nil {
					return err
				}
				defer st.Close()

				plan, err := st.MigrationPlan()
				if err != nil {
					return fmt.Errorf("inspect migrations: %w", err)
				}
				if *jsonOutput {
					return writeJSON(plan)
				}

				if err := writePlain("Current version: %d\nAvailable version: %d\n", plan.CurrentVersion, plan.AvailableVersion); err != nil {
					return err
				}
				if len(plan.Pending) == 0 {
					return writePlain("No pending migrations.\n")
				}
				if err := writePlain("Pending migrations: %d\n", len(plan.Pending)); err != nil {
					return err
				}
				for _, m := range plan.Pending {
					if err := writePlain("  %d: %s\n", m.Version, m.Description); err != nil {
						return err
					}
				}
				return nil
			}

			// Same as what happens on server start.
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			defer st.Close()

			if *jsonOutput {
				plan, err := st.MigrationPlan()
				if err != nil {
					return err
				}
				return writeJSON(plan)
			}
			return writePlain("Migrations applied successfully.\n")
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show pending migrations without applying")
	return cmd
}
