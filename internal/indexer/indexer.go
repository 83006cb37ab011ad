// Package indexer orchestrates multi-file program analysis: it
// discovers program files under a project root, builds an enriched
// model per file, and reuses cached models for unchanged files.
package indexer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/maypok86/otter"

	"github.com/lplens/lplens/internal/config"
	"github.com/lplens/lplens/internal/enrich"
)

const modelCacheCapacity = 1024

// Stats summarizes one analysis pass.
type Stats struct {
	FilesDiscovered int
	FilesAnalyzed   int
	CacheHits       int
	Statements      int
	Diagnostics     int
	Duration        time.Duration
}

// Result holds the models of one analysis pass, keyed by file path.
type Result struct {
	Models map[string]*enrich.Model
	Stats  *Stats
}

// Indexer analyzes every program file under a project root.
type Indexer interface {
	// Index discovers and analyzes all program files.
	Index(ctx context.Context) (*Result, error)

	// IndexFile analyzes a single file, bypassing discovery but not the
	// model cache.
	IndexFile(ctx context.Context, path string) (*enrich.Model, error)

	// Close releases the model cache.
	Close()
}

type indexer struct {
	rootDir    string
	sourceRoot string
	discovery  *FileDiscovery
	progress   ProgressReporter

	// Models are cached per file content version; the key embeds the
	// file's mtime so edits invalidate naturally.
	cache otter.Cache[string, *enrich.Model]
}

// Option configures an Indexer.
type Option func(*indexer)

// WithProgressReporter sets the progress reporter. Defaults to no-op.
func WithProgressReporter(pr ProgressReporter) Option {
	return func(ix *indexer) {
		if pr != nil {
			ix.progress = pr
		}
	}
}

// New creates an Indexer for the given project root and configuration.
func New(rootDir string, cfg *config.Config, opts ...Option) (Indexer, error) {
	discovery, err := NewFileDiscovery(rootDir, cfg.Paths.Programs, cfg.Paths.Ignore)
	if err != nil {
		return nil, fmt.Errorf("failed to compile discovery patterns: %w", err)
	}

	cache, err := otter.MustBuilder[string, *enrich.Model](modelCacheCapacity).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create model cache: %w", err)
	}

	ix := &indexer{
		rootDir:    rootDir,
		sourceRoot: cfg.SourceRoot(rootDir),
		discovery:  discovery,
		progress:   &NoOpProgressReporter{},
		cache:      cache,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// Index discovers and analyzes all program files under the root.
func (ix *indexer) Index(ctx context.Context) (*Result, error) {
	start := time.Now()
	stats := &Stats{}

	ix.progress.OnDiscoveryStart()
	files, err := ix.discovery.DiscoverFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	stats.FilesDiscovered = len(files)
	ix.progress.OnDiscoveryComplete(len(files))

	ix.progress.OnFileProcessingStart(len(files))
	models := make(map[string]*enrich.Model, len(files))
	for _, path := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		model, hit, err := ix.modelFor(path)
		if err != nil {
			return nil, err
		}
		if hit {
			stats.CacheHits++
		} else {
			stats.FilesAnalyzed++
		}
		stats.Statements += len(model.Statements)
		stats.Diagnostics += len(model.Diagnostics)
		models[path] = model
		ix.progress.OnFileProcessed(path)
	}

	stats.Duration = time.Since(start)
	ix.progress.OnComplete(stats)
	return &Result{Models: models, Stats: stats}, nil
}

// IndexFile analyzes a single file.
func (ix *indexer) IndexFile(ctx context.Context, path string) (*enrich.Model, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	model, _, err := ix.modelFor(path)
	return model, err
}

func (ix *indexer) modelFor(path string) (*enrich.Model, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	key := fmt.Sprintf("%s::%d", path, info.ModTime().UnixNano())
	if model, ok := ix.cache.Get(key); ok {
		return model, true, nil
	}

	model, err := enrich.FromFile(path, ix.sourceRoot)
	if err != nil {
		return nil, false, err
	}
	ix.cache.Set(key, model)
	return model, false, nil
}

// Close releases the model cache.
func (ix *indexer) Close() {
	ix.cache.Close()
}
