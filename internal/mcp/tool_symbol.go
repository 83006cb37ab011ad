package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lplens/lplens/internal/enrich"
)

// AddSymbolTool registers the lplens_symbol tool.
func AddSymbolTool(s *server.MCPServer, srv *Server) {
	tool := mcp.NewTool(
		"lplens_symbol",
		mcp.WithDescription("Look up one predicate by signature (name/arity). Returns every occurrence with its role (define or dependency), the owning statement, and the predicate's direct dependencies and dependents."),
		mcp.WithString("signature",
			mcp.Required(),
			mcp.Description("Predicate signature, e.g. 'reach/1'")),
		mcp.WithNumber("depth",
			mcp.Description("Dependency traversal depth (default: 1)")),
	)

	s.AddTool(tool, createSymbolHandler(srv))
}

func createSymbolHandler(srv *Server) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		signature, ok := argsMap["signature"].(string)
		if !ok || signature == "" {
			return mcp.NewToolResultError("signature parameter is required"), nil
		}
		depth := 1
		if d, ok := argsMap["depth"].(float64); ok && int(d) > 0 {
			depth = int(d)
		}

		response := &SymbolResponse{Signature: signature}
		for _, path := range srv.files() {
			collectOccurrences(srv.models[path], signature, response)

			dg := srv.graphs[path]
			if v, err := dg.Vertex(signature); err == nil {
				if response.Description == "" {
					response.Description = v.Description
				}
				response.Dependencies = mergeSorted(response.Dependencies, dg.Dependencies(signature, depth))
				response.Dependents = mergeSorted(response.Dependents, dg.Dependents(signature, depth))
			}
		}

		if len(response.Occurrences) == 0 {
			return mcp.NewToolResultError(fmt.Sprintf("predicate %q not found", signature)), nil
		}

		jsonData, err := json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}
		return mcp.NewToolResultText(string(jsonData)), nil
	}
}

func collectOccurrences(m *enrich.Model, signature string, response *SymbolResponse) {
	record := func(stmt *enrich.Statement, sym *enrich.Symbol, role string) {
		if sym.Signature() != signature {
			return
		}
		if response.Description == "" && sym.Directive != nil {
			response.Description = sym.Directive.Description()
		}
		response.Occurrences = append(response.Occurrences, SymbolOccurrenceInfo{
			Role:      role,
			Statement: stmt.Identifier,
			File:      sym.Loc.Begin.File,
			Line:      sym.Loc.Begin.Line,
			Column:    sym.Loc.Begin.Column,
		})
	}

	for _, stmt := range m.StatementsByKind("", true) {
		for _, sym := range stmt.Defines {
			record(stmt, sym, "define")
		}
		for _, sym := range stmt.Dependencies {
			record(stmt, sym, "dependency")
		}
	}
}

// mergeSorted merges two sorted string slices, dropping duplicates.
func mergeSorted(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, lists := range [][]string{a, b} {
		for _, s := range lists {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}
