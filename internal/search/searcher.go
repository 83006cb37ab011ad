// Package search provides full-text keyword search over the statements
// of an enriched program model, backed by an in-memory bleve index.
package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/lplens/lplens/internal/enrich"
)

// Searcher defines the interface for statement search.
type Searcher interface {
	// Search executes a keyword search using bleve query-string syntax.
	// Supports field scoping (kind:Rule), boolean operators, wildcards
	// and fuzzy matching. Options may be nil.
	Search(ctx context.Context, queryStr string, options *Options) ([]*Result, error)

	// Close releases resources held by the searcher.
	Close() error
}

// Options narrows a search.
type Options struct {
	Limit int    // Maximum results (default 15, max 100)
	Kind  string // Filter to one statement kind
	File  string // Wildcard filter on the owning file path
}

// DefaultOptions returns the option defaults.
func DefaultOptions() *Options {
	return &Options{Limit: 15}
}

// Result is one search hit.
type Result struct {
	Identifier string   `json:"identifier"`
	Kind       string   `json:"kind"`
	File       string   `json:"file"`
	Line       int      `json:"line"`
	Section    string   `json:"section,omitempty"`
	Text       string   `json:"text,omitempty"`
	Score      float64  `json:"score"`
	Highlights []string `json:"highlights,omitempty"`
}

// searcher implements Searcher over one model's statements.
type searcher struct {
	index bleve.Index
	mu    sync.RWMutex
}

// New builds an in-memory index over every statement of the model,
// external ones included.
func New(ctx context.Context, m *enrich.Model) (Searcher, error) {
	index, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	if err := indexStatements(ctx, index, m.StatementsByKind("", true)); err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to index statements: %w", err)
	}

	return &searcher{index: index}, nil
}

// buildMapping creates the index mapping for statement documents.
func buildMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	// Identifier is the primary lookup key - keyword for exact matching
	identifierMapping := bleve.NewTextFieldMapping()
	identifierMapping.Analyzer = "keyword"
	identifierMapping.Store = true
	identifierMapping.Index = true

	// Kind field (filterable) - keyword analyzer
	kindMapping := bleve.NewTextFieldMapping()
	kindMapping.Analyzer = "keyword"
	kindMapping.Store = true
	kindMapping.Index = true

	// Text field (attached comments and directive prose) - standard analyzer
	textMapping := bleve.NewTextFieldMapping()
	textMapping.Analyzer = "standard"
	textMapping.Store = true
	textMapping.Index = true
	textMapping.IncludeTermVectors = true

	// Section name - standard analyzer for partial matching
	sectionMapping := bleve.NewTextFieldMapping()
	sectionMapping.Analyzer = "standard"
	sectionMapping.Store = true
	sectionMapping.Index = true

	// File path - standard analyzer
	fileMapping := bleve.NewTextFieldMapping()
	fileMapping.Analyzer = "standard"
	fileMapping.Store = true
	fileMapping.Index = true

	// Line stored for retrieval only
	lineMapping := bleve.NewTextFieldMapping()
	lineMapping.Analyzer = "keyword"
	lineMapping.Store = true
	lineMapping.Index = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("identifier", identifierMapping)
	docMapping.AddFieldMappingsAt("kind", kindMapping)
	docMapping.AddFieldMappingsAt("text", textMapping)
	docMapping.AddFieldMappingsAt("section", sectionMapping)
	docMapping.AddFieldMappingsAt("file", fileMapping)
	docMapping.AddFieldMappingsAt("line", lineMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func indexStatements(ctx context.Context, index bleve.Index, stmts []*enrich.Statement) error {
	const batchSize = 1000

	batch := index.NewBatch()
	for i, stmt := range stmts {
		if i%batchSize == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		docID := fmt.Sprintf("%s:%d:%s", stmt.Loc.Begin.File, stmt.Loc.Begin.Line, stmt.Identifier)
		if err := batch.Index(docID, statementToDocument(stmt)); err != nil {
			return fmt.Errorf("failed to add statement %s to batch: %w", stmt.Identifier, err)
		}

		if batch.Size() >= batchSize {
			if err := index.Batch(batch); err != nil {
				return fmt.Errorf("failed to execute batch: %w", err)
			}
			batch = index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("failed to execute final batch: %w", err)
		}
	}

	return nil
}

// statementToDocument converts a statement to a bleve document. The text
// field gathers the prose attached to the statement: its comments and
// the descriptions of any documented symbols it touches.
func statementToDocument(stmt *enrich.Statement) map[string]interface{} {
	var text []string
	for _, c := range stmt.Comments {
		text = append(text, c.Content)
	}
	for _, sym := range stmt.Defines {
		if sym.Directive != nil {
			text = append(text, sym.Directive.Description())
		}
	}
	for _, sym := range stmt.Dependencies {
		if sym.Directive != nil {
			text = append(text, sym.Directive.Description())
		}
	}

	section := ""
	if stmt.Section != nil {
		section = stmt.Section.Name()
	}

	return map[string]interface{}{
		"identifier": stmt.Identifier,
		"kind":       string(stmt.Kind),
		"text":       strings.Join(text, "\n"),
		"section":    section,
		"file":       stmt.Loc.Begin.File,
		"line":       strconv.Itoa(stmt.Loc.Begin.Line),
	}
}

// Search executes a keyword search.
func (s *searcher) Search(ctx context.Context, queryStr string, options *Options) ([]*Result, error) {
	if options == nil {
		options = DefaultOptions()
	}

	limit := options.Limit
	if limit <= 0 || limit > 100 {
		limit = 15
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var queries []query.Query
	queries = append(queries, bleve.NewQueryStringQuery(queryStr))

	if options.Kind != "" {
		kindQuery := bleve.NewTermQuery(options.Kind)
		kindQuery.SetField("kind")
		queries = append(queries, kindQuery)
	}

	if options.File != "" {
		fileQuery := bleve.NewWildcardQuery(options.File)
		fileQuery.SetField("file")
		queries = append(queries, fileQuery)
	}

	var finalQuery query.Query
	if len(queries) == 1 {
		finalQuery = queries[0]
	} else {
		finalQuery = bleve.NewConjunctionQuery(queries...)
	}

	searchRequest := bleve.NewSearchRequestOptions(finalQuery, limit, 0, false)
	highlightStyle := "html"
	searchRequest.Highlight = bleve.NewHighlight()
	searchRequest.Highlight.Style = &highlightStyle
	searchRequest.Highlight.Fields = []string{"text"}
	searchRequest.Fields = []string{"identifier", "kind", "text", "section", "file", "line"}

	searchResult, err := s.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	results := make([]*Result, 0, len(searchResult.Hits))
	for _, hit := range searchResult.Hits {
		identifier, _ := hit.Fields["identifier"].(string)
		kind, _ := hit.Fields["kind"].(string)
		text, _ := hit.Fields["text"].(string)
		section, _ := hit.Fields["section"].(string)
		file, _ := hit.Fields["file"].(string)
		lineStr, _ := hit.Fields["line"].(string)
		line, _ := strconv.Atoi(lineStr)

		results = append(results, &Result{
			Identifier: identifier,
			Kind:       kind,
			File:       file,
			Line:       line,
			Section:    section,
			Text:       text,
			Score:      hit.Score,
			Highlights: extractHighlights(hit.Fragments),
		})
	}

	return results, nil
}

// extractHighlights flattens bleve fragments, capped at 3 per result.
func extractHighlights(fragments map[string][]string) []string {
	var highlights []string
	for _, snippets := range fragments {
		highlights = append(highlights, snippets...)
	}
	if len(highlights) > 3 {
		highlights = highlights[:3]
	}
	return highlights
}

// Close releases resources held by the searcher.
func (s *searcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil {
		return s.index.Close()
	}
	return nil
}
