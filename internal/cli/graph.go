package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lplens/lplens/internal/config"
	"github.com/lplens/lplens/internal/depgraph"
	"github.com/lplens/lplens/internal/enrich"
)

var (
	graphDepsFlag       string
	graphDependentsFlag string
	graphDepthFlag      int
	graphOutputFlag     string
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Predicate dependency graph of a program file",
	Long: `Graph builds the predicate dependency graph of one program file
and either exports it in Graphviz DOT format or answers neighborhood
queries on it.

Examples:
  # DOT export to stdout
  lplens graph encoding.lp

  # DOT export to a file
  lplens graph encoding.lp -o deps.dot

  # What does reach/1 depend on, transitively to depth 3?
  lplens graph encoding.lp --deps reach/1 --depth 3

  # What depends on edge/2?
  lplens graph encoding.lp --dependents edge/2
`,
	Args: cobra.ExactArgs(1),
	RunE: runGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringVar(&graphDepsFlag, "deps", "", "Print the dependencies of a predicate signature")
	graphCmd.Flags().StringVar(&graphDependentsFlag, "dependents", "", "Print the dependents of a predicate signature")
	graphCmd.Flags().IntVar(&graphDepthFlag, "depth", 1, "Traversal depth for --deps/--dependents")
	graphCmd.Flags().StringVarP(&graphOutputFlag, "output", "o", "", "Write DOT output to a file instead of stdout")
}

func runGraph(cmd *cobra.Command, args []string) error {
	rootDir, err := projectRoot()
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	m, err := enrich.FromFile(args[0], cfg.SourceRoot(rootDir))
	if err != nil {
		return err
	}
	dg, err := depgraph.Build(m)
	if err != nil {
		return err
	}

	if graphDepsFlag != "" || graphDependentsFlag != "" {
		if graphDepsFlag != "" {
			printNeighbors("depends on", graphDepsFlag, dg.Dependencies(graphDepsFlag, graphDepthFlag))
		}
		if graphDependentsFlag != "" {
			printNeighbors("is depended on by", graphDependentsFlag, dg.Dependents(graphDependentsFlag, graphDepthFlag))
		}
		return nil
	}

	out := os.Stdout
	if graphOutputFlag != "" {
		f, err := os.Create(graphOutputFlag)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return dg.DOT(out)
}

func printNeighbors(relation, signature string, neighbors []string) {
	if len(neighbors) == 0 {
		fmt.Printf("%s %s nothing\n", signature, relation)
		return
	}
	fmt.Printf("%s %s:\n", signature, relation)
	for _, n := range neighbors {
		fmt.Printf("  %s\n", n)
	}
}
