package main

import (
	"github.com/spf13/cobra"

	"github.com/fixify-hostel/fixify-api/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}
	cmd.AddCommand(migrateDirection(database.Up, "Apply pending migrations"))
	cmd.AddCommand(migrateDirection(database.Down, "Roll back migrations"))
	return cmd
}

func migrateDirection(dir database.Direction, short string) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   string(dir),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logr, err := bootstrap()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck
			return database.Migrate(cfg.Database, dir, steps, logr)
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "number of migrations to apply; 0 means all")
	return cmd
}
