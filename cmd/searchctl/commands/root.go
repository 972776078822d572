// Package commands implements the searchctl CLI.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverAddr   string
	apiKey       string
	outputFormat string
	quiet        bool
)

// NewRootCmd creates the root command with global flags.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "searchctl",
		Short: "Command-line client for the searchd product search API",
		Long: `searchctl talks to a running searchd server: run semantic product
searches, trigger catalog reindexing, and check service health.

The server address and API key can also come from the SEARCHD_ADDR and
SEARCHD_API_KEY environment variables; flags take precedence.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&serverAddr, "addr", envOr("SEARCHD_ADDR", "http://localhost:8080"),
		"searchd server address")
	cmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("SEARCHD_API_KEY"),
		"Bearer token for authenticated servers")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format: table or json")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")

	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewSyncCmd())
	cmd.AddCommand(NewHealthCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
