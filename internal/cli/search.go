package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lplens/lplens/internal/config"
	"github.com/lplens/lplens/internal/indexer"
	"github.com/lplens/lplens/internal/search"
)

var (
	searchLimitFlag int
	searchKindFlag  string
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Keyword search over the analyzed statements",
	Long: `Search analyzes the project and runs a keyword query over every
statement's identifier, attached comments, directive prose and section
names, using bleve query-string syntax.

Examples:
  lplens search 'identifier:"route/2"'
  lplens search 'vehicle AND cost'
  lplens search 'shortest path' --kind Rule --limit 5
`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimitFlag, "limit", "n", 15, "Maximum number of results")
	searchCmd.Flags().StringVarP(&searchKindFlag, "kind", "k", "", "Filter by statement kind")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rootDir, err := projectRoot()
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ix, err := indexer.New(rootDir, cfg)
	if err != nil {
		return fmt.Errorf("failed to create indexer: %w", err)
	}
	defer ix.Close()

	result, err := ix.Index(ctx)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	options := &search.Options{Limit: searchLimitFlag, Kind: searchKindFlag}
	var merged []*search.Result
	for path, m := range result.Models {
		searcher, err := search.New(ctx, m)
		if err != nil {
			return fmt.Errorf("failed to build search index for %s: %w", path, err)
		}
		hits, err := searcher.Search(ctx, args[0], options)
		searcher.Close()
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		merged = append(merged, hits...)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > searchLimitFlag {
		merged = merged[:searchLimitFlag]
	}

	if len(merged) == 0 {
		fmt.Println("No matches.")
		return nil
	}
	for _, r := range merged {
		section := ""
		if r.Section != "" {
			section = fmt.Sprintf("  [%s]", r.Section)
		}
		fmt.Printf("%s:%d  %-11s %s%s  (%.2f)\n", r.File, r.Line, r.Kind, r.Identifier, section, r.Score)
		for _, h := range r.Highlights {
			fmt.Printf("    %s\n", h)
		}
	}
	return nil
}
