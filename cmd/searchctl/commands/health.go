package commands

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewHealthCmd creates the health command.
func NewHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE:  runHealth,
	}
}

func runHealth(cmd *cobra.Command, _ []string) error {
	h, err := newClient().Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("checking health: %w", err)
	}

	if outputFormat == "json" {
		jsonData, err := json.MarshalIndent(h, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	statusStr := green(h.Status)
	if h.Status != "ok" {
		statusStr = yellow(h.Status)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Status: %s\n", statusStr)

	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		check := h.Checks[name]
		checkStr := green(check)
		if check != "ok" {
			checkStr = red(check)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %s\n", name, checkStr)
	}

	return nil
}
