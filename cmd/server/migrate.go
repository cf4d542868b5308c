package main

import (
	"fmt"
	"strconv"

	"github.com/prajwalbharadwajbm/clipescrow/internal/config"
	"github.com/prajwalbharadwajbm/clipescrow/internal/database"
	"github.com/spf13/cobra"
)

func migrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "manage the postgres schema",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadConfigs()
		},
	}

	manager := func() *database.MigrationManager {
		return database.NewMigrationManager(config.AppConfigInstance.DatabaseConfig)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := database.EnsureDatabase(config.AppConfigInstance.DatabaseConfig); err != nil {
					return err
				}
				return manager().Up()
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "roll back all migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return manager().Down()
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				version, dirty, err := manager().Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
				return nil
			},
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "set the schema version without migrating",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return manager().Force(version)
			},
		},
	)
	return cmd
}
