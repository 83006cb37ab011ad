package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lplens/lplens/internal/config"
	"github.com/lplens/lplens/internal/indexer"
	"github.com/lplens/lplens/internal/storage"
)

var (
	quietFlag bool
	watchFlag bool
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Analyze the project and persist the result",
	Long: `Index discovers every program file under the project root, builds
the enriched model for each, and writes the result to the project
database (.lplens/lplens.db by default).

Examples:
  # Analyze the current directory
  lplens index

  # Analyze with progress bars disabled
  lplens index --quiet

  # Watch for changes and reanalyze
  lplens index --watch
`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
	indexCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch for file changes and reanalyze")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted! Cancelling analysis...")
		cancel()
	}()

	rootDir, err := projectRoot()
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbPath := cfg.StorageLocation(rootDir)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	writer, err := storage.NewWriter(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer writer.Close()

	progress := NewCLIProgressReporter(quietFlag)
	ix, err := indexer.New(rootDir, cfg, indexer.WithProgressReporter(progress))
	if err != nil {
		return fmt.Errorf("failed to create indexer: %w", err)
	}
	defer ix.Close()

	persist := func(result *indexer.Result) error {
		for path, m := range result.Models {
			if _, err := writer.WriteModel(m); err != nil {
				return fmt.Errorf("failed to persist %s: %w", path, err)
			}
		}
		return nil
	}

	result, err := ix.Index(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("analysis cancelled")
		}
		return fmt.Errorf("analysis failed: %w", err)
	}
	if err := persist(result); err != nil {
		return err
	}

	if !watchFlag {
		return nil
	}

	if !quietFlag {
		log.Println("Starting watch mode...")
	}
	watcher, err := indexer.NewWatcher(ix, rootDir, func(r *indexer.Result) {
		if err := persist(r); err != nil {
			log.Printf("Failed to persist reanalysis: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	watcher.Start(ctx)
	defer watcher.Stop()

	<-ctx.Done()
	if !quietFlag {
		log.Println("Watch mode stopped")
	}
	return nil
}
