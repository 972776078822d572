package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/trylook/searchd/pkg/client"
)

var (
	searchLimit    int
	searchCategory string
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search products",
		Long: `Run a semantic product search against the server.

Examples:
  searchctl search "blue jeans"
  searchctl search --limit 10 --category apparel "running shoes"
  searchctl search --format json "coffee mug"`,
		Args: cobra.ExactArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum results to return (0 = server default)")
	cmd.Flags().StringVar(&searchCategory, "category", "", "Restrict results to one category")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchLimit != 0 {
		if err := validatePositiveInt(searchLimit, "limit"); err != nil {
			return err
		}
	}

	resp, err := newClient().Search(cmd.Context(), client.SearchRequest{
		Query:    args[0],
		Limit:    searchLimit,
		Category: searchCategory,
	})
	if err != nil {
		return fmt.Errorf("searching products: %w", err)
	}

	if len(resp.Items) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No products found for query: %s\n", args[0])
		}
		return nil
	}

	if outputFormat == "json" {
		jsonData, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SCORE\tNAME\tCATEGORY\tBRAND\tPRICE\n")
	fmt.Fprintf(w, "-----\t----\t--------\t-----\t-----\n")

	for _, item := range resp.Items {
		price := "-"
		if item.Price != nil {
			price = fmt.Sprintf("%.2f", *item.Price)
		}
		fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\t%s\n",
			item.Similarity,
			truncate(item.Name, 40),
			truncate(item.Category, 20),
			truncate(item.Brand, 20),
			price)
	}
	w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nFound %d result(s)\n", resp.Total)
	}

	return nil
}
