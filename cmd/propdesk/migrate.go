package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vbonduro/propdesk/internal/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// setup opens the database, which applies pending migrations.
			_, logger, database, closeAll, err := setup()
			if err != nil {
				return err
			}
			defer closeAll()

			version, dirty, err := db.Version(database)
			if err != nil {
				logger.Error("failed to read schema version", "error", err)
				return err
			}
			logger.Info("database migrated", "version", version, "dirty", dirty)
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		},
	}
}
