package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lplens/lplens/internal/config"
	"github.com/lplens/lplens/internal/enrich"
	"github.com/lplens/lplens/internal/storage"
)

var exportListFlag bool

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write one file's model to the project database",
	Long: `Export analyzes a single program file and persists the enriched
model as a new run in the project database.

Examples:
  # Persist one file
  lplens export encoding.lp

  # List persisted runs
  lplens export --list
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().BoolVarP(&exportListFlag, "list", "l", false, "List persisted runs instead of exporting")
}

func runExport(cmd *cobra.Command, args []string) error {
	rootDir, err := projectRoot()
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	dbPath := cfg.StorageLocation(rootDir)

	if exportListFlag {
		reader, err := storage.NewReader(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		defer reader.Close()

		runs, err := reader.Runs()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs persisted.")
			return nil
		}
		for _, run := range runs {
			fmt.Printf("%s  %s  gaps=%d  %s\n", run.ID, run.CreatedAt, run.TraversalGaps, run.File)
		}
		return nil
	}

	if len(args) != 1 {
		return fmt.Errorf("export requires a file argument (or --list)")
	}

	m, err := enrich.FromFile(args[0], cfg.SourceRoot(rootDir))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	writer, err := storage.NewWriter(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer writer.Close()

	runID, err := writer.WriteModel(m)
	if err != nil {
		return err
	}
	fmt.Printf("Run %s: %d statements from %s\n", runID, len(m.Statements), m.File)
	return nil
}
