package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/content-pipeline/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Apply the embedded SQL migrations to the Postgres database named by DATABASE_URL.
SQLite databases are migrated automatically when opened.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	settings, log, err := loadSettings()
	if err != nil {
		return err
	}
	defer log.Sync()
	if err := settings.RequireDatabase(); err != nil {
		return err
	}

	store, err := db.Open(cmd.Context(), settings.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	pg, ok := store.(*db.PostgresStore)
	if !ok {
		fmt.Fprintln(out, "Schema is up to date (managed automatically for this database)")
		return nil
	}

	applied, err := pg.Migrate(cmd.Context())
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Fprintln(out, "No pending migrations")
		return nil
	}
	for _, name := range applied {
		fmt.Fprintf(out, "Applied %s\n", name)
	}
	log.Info("migrations applied", "count", len(applied))
	return nil
}
