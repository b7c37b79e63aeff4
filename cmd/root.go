package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opentrusty/opentrusty/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "trustyd",
	Short: "OpenTrusty identity and access server",
	Long: `OpenTrusty is a multi-tenant identity and access service. It issues
OAuth 2.0 and OIDC credentials and evaluates role-based permissions over
the platform / organization / project hierarchy.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: DATABASE_URL)")
	rootCmd.PersistentFlags().String("server-addr", "", "Server bind address (env: SERVER_ADDR)")
	rootCmd.PersistentFlags().String("server-url", "", "Public base URL, doubles as the OIDC issuer (env: SERVER_URL)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging (env: DEBUG)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
