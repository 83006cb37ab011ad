package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lplens/lplens/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestIndexer(t *testing.T, rootDir string, opts ...Option) Indexer {
	t.Helper()
	ix, err := New(rootDir, config.Default(), opts...)
	require.NoError(t, err)
	t.Cleanup(ix.Close)
	return ix
}

func TestIndex_DiscoversAndAnalyzes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.lp"), "a.\nb :- a.\n")
	writeFile(t, filepath.Join(dir, "sub", "extra.lp"), "c.\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "not a program")
	writeFile(t, filepath.Join(dir, ".lplens", "stale.lp"), "ignored.")

	ix := newTestIndexer(t, dir)
	result, err := ix.Index(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.FilesDiscovered)
	assert.Equal(t, 2, result.Stats.FilesAnalyzed)
	assert.Equal(t, 3, result.Stats.Statements)
	require.Len(t, result.Models, 2)

	m := result.Models[filepath.Join(dir, "main.lp")]
	require.NotNil(t, m)
	assert.Len(t, m.Statements, 2)
}

func TestIndex_IgnorePatterns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "keep.lp"), "a.\n")
	writeFile(t, filepath.Join(dir, "scratch", "drop.lp"), "b.\n")

	cfg := config.Default()
	cfg.Paths.Ignore = append(cfg.Paths.Ignore, "scratch/**")
	ix, err := New(dir, cfg)
	require.NoError(t, err)
	defer ix.Close()

	result, err := ix.Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.FilesDiscovered)
	assert.Contains(t, result.Models, filepath.Join(dir, "keep.lp"))
}

func TestIndex_CacheHitsOnUnchangedFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.lp"), "a.\n")

	ix := newTestIndexer(t, dir)

	first, err := ix.Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Stats.FilesAnalyzed)
	assert.Equal(t, 0, first.Stats.CacheHits)

	second, err := ix.Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Stats.FilesAnalyzed)
	assert.Equal(t, 1, second.Stats.CacheHits)
}

func TestIndex_ModifiedFileInvalidatesCache(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "main.lp")
	writeFile(t, path, "a.\n")

	ix := newTestIndexer(t, dir)
	_, err := ix.Index(context.Background())
	require.NoError(t, err)

	writeFile(t, path, "a.\nb.\n")
	// mtime resolution on some filesystems is coarse.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	result, err := ix.Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.FilesAnalyzed)
	assert.Len(t, result.Models[path].Statements, 2)
}

func TestIndex_ParseFailureSurfaces(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.lp"), "p(X :- q.\n")

	ix := newTestIndexer(t, dir)
	_, err := ix.Index(context.Background())
	require.Error(t, err)
}

func TestIndexFile_SingleFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "one.lp")
	writeFile(t, path, "p :- q.\n")

	ix := newTestIndexer(t, dir)
	m, err := ix.IndexFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, m.Statements, 1)
	assert.Equal(t, "p/0", m.Statements[0].Identifier)
}

func TestIndex_CancelledContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.lp"), "a.\n")

	ix := newTestIndexer(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ix.Index(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type recordingReporter struct {
	discoveries int
	processed   []string
	completed   bool
}

func (r *recordingReporter) OnDiscoveryStart()               { r.discoveries++ }
func (r *recordingReporter) OnDiscoveryComplete(files int)   {}
func (r *recordingReporter) OnFileProcessingStart(total int) {}
func (r *recordingReporter) OnFileProcessed(fileName string) { r.processed = append(r.processed, fileName) }
func (r *recordingReporter) OnComplete(stats *Stats)         { r.completed = true }

func TestIndex_ReportsProgress(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.lp"), "a.\n")

	reporter := &recordingReporter{}
	ix := newTestIndexer(t, dir, WithProgressReporter(reporter))

	_, err := ix.Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, reporter.discoveries)
	assert.Len(t, reporter.processed, 1)
	assert.True(t, reporter.completed)
}

func TestDiscovery_RootLevelFilesMatchDoubleStar(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "root.lp"), "a.\n")

	fd, err := NewFileDiscovery(dir, []string{"**/*.lp"}, nil)
	require.NoError(t, err)

	files, err := fd.DiscoverFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "root.lp")}, files)
}
