package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-gallery-fetch/index"
)

func init() {
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over previously fetched galleries",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	idx, err := index.OpenOrCreateIndex(globalConfig.BleveIndexPath)
	if err != nil {
		return fmt.Errorf("opening search index: %w", err)
	}
	defer idx.Close()

	results, err := index.SearchIndex(idx, args[0])
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	fmt.Printf("%d matches in %s\n", results.Total, results.Took)
	for _, hit := range results.Hits {
		fmt.Printf("- gid=%s score=%.3f %v\n", hit.ID, hit.Score, hit.Fields)
	}
	return nil
}
