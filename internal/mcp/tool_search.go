package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lplens/lplens/internal/search"
)

// AddSearchTool registers the lplens_search tool.
func AddSearchTool(s *server.MCPServer, srv *Server) {
	tool := mcp.NewTool(
		"lplens_search",
		mcp.WithDescription("Keyword search over the analyzed statements using bleve query-string syntax. Searches identifiers, attached comments, directive prose and section names. Example queries: 'identifier:route*', 'vehicle AND cost', 'kind:Constraint'."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Query string (e.g. 'identifier:\"reach/1\"', 'shortest path')")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (1-100, default: 15)")),
		mcp.WithString("kind",
			mcp.Description("Filter by statement kind (e.g. 'Rule', 'Constraint')")),
	)

	s.AddTool(tool, createSearchHandler(srv))
}

func createSearchHandler(srv *Server) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		query, ok := argsMap["query"].(string)
		if !ok || query == "" {
			return mcp.NewToolResultError("query parameter is required"), nil
		}

		limit := 15
		if l, ok := argsMap["limit"].(float64); ok && int(l) > 0 {
			limit = int(l)
		}
		kind, _ := argsMap["kind"].(string)

		options := &search.Options{Limit: limit, Kind: kind}

		// Query every file's index and merge by score.
		var merged []*search.Result
		for _, path := range srv.files() {
			results, err := srv.searchers[path].Search(ctx, query, options)
			if err != nil {
				return nil, fmt.Errorf("search failed for %s: %w", path, err)
			}
			merged = append(merged, results...)
		}
		sort.SliceStable(merged, func(i, j int) bool {
			return merged[i].Score > merged[j].Score
		})
		if len(merged) > limit {
			merged = merged[:limit]
		}

		jsonData, err := json.Marshal(&SearchResponse{Results: merged, Total: len(merged)})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}
		return mcp.NewToolResultText(string(jsonData)), nil
	}
}
