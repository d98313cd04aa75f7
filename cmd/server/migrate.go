package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/UkralStul/studyabroad-realtime/internal/logging"
)

// migrateCmd применяет схему и завершается
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Storage == "in-memory" {
			return fmt.Errorf("migrate needs --storage postgres or sqlite")
		}
		log, err := logging.New(cfg.LogLevel, os.Stderr)
		if err != nil {
			return err
		}
		_, closeStore, err := openStore(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer closeStore()
		log.WithField("storage", cfg.Storage).Info("schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
