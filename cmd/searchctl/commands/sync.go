package commands

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reindex the product catalog",
		Long: `Trigger a full catalog sync on the server: every product is fetched,
embedded, and upserted into the vector index. The command waits for the
run to finish and prints its summary.`,
		Args: cobra.NoArgs,
		RunE: runSync,
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	summary, err := newClient().Sync(cmd.Context())
	if err != nil {
		return fmt.Errorf("syncing catalog: %w", err)
	}

	if outputFormat == "json" {
		jsonData, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed: %s of %d products\n", green(summary.Indexed), summary.Total)
	if summary.Skipped > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Skipped: %d\n", summary.Skipped)
	}
	if len(summary.Errors) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Failed:  %s\n", red(len(summary.Errors)))
		for _, e := range summary.Errors {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", e)
		}
	}

	return nil
}
