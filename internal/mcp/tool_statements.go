package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lplens/lplens/internal/enrich"
)

// AddStatementsTool registers the lplens_statements tool. The function
// is composable with the other tool registrations.
func AddStatementsTool(s *server.MCPServer, srv *Server) {
	tool := mcp.NewTool(
		"lplens_statements",
		mcp.WithDescription("List the classified statements of the analyzed logic programs. Each statement carries its kind (Rule, Fact, Constraint, Definition, Input, Output), identifier, defined and depended-on predicates, enclosing section and attached comments."),
		mcp.WithString("file",
			mcp.Description("Restrict to one analyzed file path. Leave empty for all files.")),
		mcp.WithString("kind",
			mcp.Description("Filter by statement kind: Rule, Fact, Constraint, Definition, Input, Constant or Output.")),
		mcp.WithBoolean("include_external",
			mcp.Description("Include statements pulled in through #include (default: false).")),
	)

	s.AddTool(tool, createStatementsHandler(srv))
}

func createStatementsHandler(srv *Server) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			argsMap = map[string]interface{}{}
		}

		file, _ := argsMap["file"].(string)
		kind, _ := argsMap["kind"].(string)
		includeExternal, _ := argsMap["include_external"].(bool)

		if kind != "" && !validKind(kind) {
			return mcp.NewToolResultError(fmt.Sprintf("unknown statement kind %q", kind)), nil
		}

		var infos []StatementInfo
		for _, path := range srv.files() {
			if file != "" && path != file {
				continue
			}
			for _, stmt := range srv.models[path].StatementsByKind(enrich.StatementKind(kind), includeExternal) {
				infos = append(infos, statementInfo(stmt))
			}
		}
		if file != "" && len(infos) == 0 {
			if _, known := srv.models[file]; !known {
				return mcp.NewToolResultError(fmt.Sprintf("file %q was not analyzed", file)), nil
			}
		}

		jsonData, err := json.Marshal(&StatementsResponse{Statements: infos, Total: len(infos)})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}
		return mcp.NewToolResultText(string(jsonData)), nil
	}
}

func validKind(kind string) bool {
	for _, k := range enrich.Kinds() {
		if string(k) == kind {
			return true
		}
	}
	return false
}

func statementInfo(stmt *enrich.Statement) StatementInfo {
	info := StatementInfo{
		Identifier: stmt.Identifier,
		Kind:       string(stmt.Kind),
		File:       stmt.Loc.Begin.File,
		Line:       stmt.Loc.Begin.Line,
		Prefix:     stmt.Prefix,
	}
	if stmt.Section != nil {
		info.Section = stmt.Section.Name()
	}
	for _, sym := range stmt.Defines {
		info.Defines = append(info.Defines, sym.Signature())
	}
	for _, sym := range stmt.Dependencies {
		info.Dependencies = append(info.Dependencies, sym.Signature())
	}
	for _, c := range stmt.Comments {
		info.Comments = append(info.Comments, c.Content)
	}
	return info
}
