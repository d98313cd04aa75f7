package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/UkralStul/studyabroad-realtime/internal/config"
)

var cfg = config.Load()

// rootCmd - корневая команда
var rootCmd = &cobra.Command{
	Use:   "studyabroad-realtime",
	Short: "Realtime forum, chat and notification core of the study-abroad platform",
	Long: `Serves the websocket gateway and the JSON endpoints that drive it.

Configuration comes from the environment (PORT, STORAGE, DATABASE_URL, JWT_SECRET,
LOG_LEVEL, SEED, HIDE_THRESHOLD, WS_*); flags override it.

Examples:
  studyabroad-realtime serve --storage in-memory --seed
  studyabroad-realtime migrate --storage postgres --database-url postgres://...
  studyabroad-realtime token --user student-1 --role student`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute запускает корневую команду
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Глобальные флаги, значения по умолчанию берутся из окружения
	rootCmd.PersistentFlags().StringVar(&cfg.Storage, "storage", cfg.Storage, "Storage type (in-memory, postgres or sqlite)")
	rootCmd.PersistentFlags().StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "Database DSN for postgres or sqlite storage")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "HS256 secret shared with the account service")
}
