package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/lplens/lplens/internal/config"
	"github.com/lplens/lplens/internal/depgraph"
	"github.com/lplens/lplens/internal/enrich"
	"github.com/lplens/lplens/internal/indexer"
	"github.com/lplens/lplens/internal/search"
)

// Server manages the MCP server lifecycle: it analyzes the project
// once at startup and serves query tools over stdio.
type Server struct {
	rootDir   string
	models    map[string]*enrich.Model
	searchers map[string]search.Searcher
	graphs    map[string]*depgraph.Graph
	mcp       *server.MCPServer
}

// NewServer analyzes the project under rootDir and prepares the tools.
func NewServer(ctx context.Context, rootDir string, cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	ix, err := indexer.New(rootDir, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexer: %w", err)
	}
	defer ix.Close()

	result, err := ix.Index(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze project: %w", err)
	}

	s := &Server{
		rootDir:   rootDir,
		models:    result.Models,
		searchers: make(map[string]search.Searcher, len(result.Models)),
		graphs:    make(map[string]*depgraph.Graph, len(result.Models)),
	}

	for path, m := range result.Models {
		searcher, err := search.New(ctx, m)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to build search index for %s: %w", path, err)
		}
		s.searchers[path] = searcher

		dg, err := depgraph.Build(m)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to build dependency graph for %s: %w", path, err)
		}
		s.graphs[path] = dg
	}

	mcpServer := server.NewMCPServer(
		"lplens-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	AddStatementsTool(mcpServer, s)
	AddSearchTool(mcpServer, s)
	AddSymbolTool(mcpServer, s)
	s.mcp = mcpServer

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		cancel()
		return nil
	case err := <-errCh:
		cancel()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases all search indexes.
func (s *Server) Close() error {
	var firstErr error
	for _, searcher := range s.searchers {
		if err := searcher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// files returns the analyzed file paths in stable order.
func (s *Server) files() []string {
	out := make([]string, 0, len(s.models))
	for path := range s.models {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}
