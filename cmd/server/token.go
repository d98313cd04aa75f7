package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/UkralStul/studyabroad-realtime/internal/auth"
)

var (
	tokenUser string
	tokenRole string
	tokenTTL  time.Duration
)

// tokenCmd печатает подписанный токен для локальной проверки
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a development token signed with the configured secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWTSecret == "" {
			return fmt.Errorf("--jwt-secret or JWT_SECRET is required")
		}
		if tokenUser == "" {
			return fmt.Errorf("--user is required")
		}
		tok, err := auth.NewJWTVerifier(cfg.JWTSecret).Issue(auth.Principal{UserID: tokenUser, Role: tokenRole}, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "User id (token subject)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", auth.RoleStudent, "Role: student, counselor or admin")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
}
