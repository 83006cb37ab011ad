package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lplens/lplens/internal/config"
	"github.com/lplens/lplens/internal/enrich"
)

var (
	analyzeKindFlag string
	analyzeJSONFlag bool
	analyzeExternal bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a single program file",
	Long: `Analyze parses one program file (following #include), classifies
every statement, and prints the enriched view: kind, identifier, defined
and depended-on predicates, enclosing section and attached comments.

Examples:
  # Print the classified statements of a file
  lplens analyze encoding.lp

  # Only the constraints
  lplens analyze encoding.lp --kind Constraint

  # Machine-readable output
  lplens analyze encoding.lp --json
`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeKindFlag, "kind", "k", "", "Filter by statement kind (Rule, Fact, Constraint, Definition, Input, Output)")
	analyzeCmd.Flags().BoolVar(&analyzeJSONFlag, "json", false, "Emit JSON instead of text")
	analyzeCmd.Flags().BoolVar(&analyzeExternal, "include-external", false, "Include statements pulled in through #include")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
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

	kind := enrich.StatementKind(analyzeKindFlag)
	if analyzeKindFlag != "" && !knownKind(kind) {
		return fmt.Errorf("unknown statement kind %q", analyzeKindFlag)
	}
	stmts := m.StatementsByKind(kind, analyzeExternal)

	if analyzeJSONFlag {
		return printStatementsJSON(stmts, m)
	}

	for _, stmt := range stmts {
		section := ""
		if stmt.Section != nil {
			section = fmt.Sprintf("  [%s]", stmt.Section.Name())
		}
		fmt.Printf("%s:%d  %-11s %s%s\n",
			stmt.Loc.Begin.File, stmt.Loc.Begin.Line, stmt.Kind, stmt.Identifier, section)
		if verbose {
			for _, sym := range stmt.Defines {
				fmt.Printf("    defines    %s\n", sym.Signature())
			}
			for _, sym := range stmt.Dependencies {
				fmt.Printf("    depends on %s\n", sym.Signature())
			}
			for _, c := range stmt.Comments {
				fmt.Printf("    %% %s\n", c.Content)
			}
		}
	}

	for _, diag := range m.Diagnostics {
		fmt.Fprintf(os.Stderr, "%s:%d: %s: %s\n",
			diag.Loc.Begin.File, diag.Loc.Begin.Line, diag.Kind, diag.Message)
	}
	if m.TraversalGaps > 0 && verbose {
		fmt.Fprintf(os.Stderr, "%d references classified through the structural fallback\n", m.TraversalGaps)
	}
	return nil
}

func knownKind(kind enrich.StatementKind) bool {
	for _, k := range enrich.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

type statementJSON struct {
	Identifier   string   `json:"identifier"`
	Kind         string   `json:"kind"`
	File         string   `json:"file"`
	Line         int      `json:"line"`
	Section      string   `json:"section,omitempty"`
	Defines      []string `json:"defines,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Comments     []string `json:"comments,omitempty"`
}

func printStatementsJSON(stmts []*enrich.Statement, m *enrich.Model) error {
	out := struct {
		File          string          `json:"file"`
		Statements    []statementJSON `json:"statements"`
		Diagnostics   int             `json:"diagnostics"`
		TraversalGaps int             `json:"traversal_gaps"`
	}{File: m.File, Diagnostics: len(m.Diagnostics), TraversalGaps: m.TraversalGaps}

	for _, stmt := range stmts {
		sj := statementJSON{
			Identifier: stmt.Identifier,
			Kind:       string(stmt.Kind),
			File:       stmt.Loc.Begin.File,
			Line:       stmt.Loc.Begin.Line,
		}
		if stmt.Section != nil {
			sj.Section = stmt.Section.Name()
		}
		for _, sym := range stmt.Defines {
			sj.Defines = append(sj.Defines, sym.Signature())
		}
		for _, sym := range stmt.Dependencies {
			sj.Dependencies = append(sj.Dependencies, sym.Signature())
		}
		for _, c := range stmt.Comments {
			sj.Comments = append(sj.Comments, c.Content)
		}
		out.Statements = append(out.Statements, sj)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
